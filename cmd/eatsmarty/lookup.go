package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/franckalain/eatsmarty/internal/cli"
	"github.com/franckalain/eatsmarty/internal/decoder"
	"github.com/franckalain/eatsmarty/internal/product"
	"github.com/franckalain/eatsmarty/internal/scanner"
)

func lookupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look up a product by barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return resolveAndPrint(cmd, opts, a, args[0], product.SourceManual)
		},
	}
}

func scanCmd(opts *options) *cobra.Command {
	var (
		frames   string
		loop     bool
		interval time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a barcode from a directory of camera frames",
		Long: `Decode frames (png or jpeg, in name order) until a barcode is found,
then look the product up. Frames that hold no barcode are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			dec, err := decoder.NewDecoder(ctx, a.cfg.Decoder)
			if err != nil {
				return err
			}
			if c, ok := dec.(io.Closer); ok {
				defer c.Close()
			}

			camera := &scanner.DirCamera{Dir: frames, Loop: loop, Interval: interval}
			barcode, err := scanner.Scan(ctx, camera, dec, a.logger, scanner.WithJournal(a.db))
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return errors.New(cli.FormatError("no barcode found before timeout"))
				}
				return errors.New(cli.FormatError(err.Error()))
			}
			if !opts.jsonOutput {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("Scanned "+barcode))
			}
			return resolveAndPrint(cmd, opts, a, barcode, product.SourceCamera)
		},
	}
	cmd.Flags().StringVar(&frames, "frames", ".", "directory of frames to decode")
	cmd.Flags().BoolVar(&loop, "loop", false, "restart from the first frame when all frames were read")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between frames")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits forever)")
	return cmd
}

func resolveAndPrint(cmd *cobra.Command, opts *options, a *app, barcode, source string) error {
	p, err := a.resolver.ResolveFrom(cmd.Context(), barcode, source)
	if err != nil {
		if opts.jsonOutput {
			_ = opts.render(cmd.OutOrStdout(), map[string]string{
				"kind":    string(product.Outcome(err)),
				"message": product.Message(err),
			}, nil)
		}
		return errors.New(cli.FormatError(product.Message(err)))
	}
	return opts.render(cmd.OutOrStdout(), p, func() string {
		return cli.RenderProduct(p, a.catalog)
	})
}
