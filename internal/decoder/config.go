package decoder

import (
	"errors"
	"os"
)

// VertexConfig holds configuration for the Vertex AI decoder
type VertexConfig struct {
	ProjectID       string
	Location        string
	CredentialsFile string
	Model           string
}

// Load falls back to environment variables for unset fields
func (c *VertexConfig) Load() {
	if c.ProjectID == "" {
		c.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
	}
	if c.Location == "" {
		c.Location = os.Getenv("GOOGLE_LOCATION")
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.Model == "" {
		c.Model = "gemini-1.5-flash"
	}
}

// Validate reports missing required settings
func (c *VertexConfig) Validate() error {
	if c.ProjectID == "" {
		return errors.New("project id is not set")
	}
	if c.Location == "" {
		return errors.New("location is not set")
	}
	return nil
}
