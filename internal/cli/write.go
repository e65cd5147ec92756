package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/cms/pkg/cms"
	"github.com/calvinalkan/cms/pkg/content"
	"github.com/calvinalkan/cms/pkg/schema"
)

func putCmd(a *app) *Command {
	flags := newFlags("put")
	file := flags.StringP("file", "f", "-", "Read the document from `path` (- for stdin)")
	expect := flags.String("expect", "", "Only write if the current checksum is `sha`")

	return &Command{
		Flags: flags,
		Usage: "put <static|collection/id> [flags]",
		Short: "Write a document",
		Long: `Validate a JSON document and write it unchanged.

The target is a static entry name or <collection>/<id>. With --expect the
write only happens when the stored checksum still matches; a missing file
counts as empty and is created. Prints the new checksum.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, "target"); err != nil {
				return err
			}

			data, err := a.readInput(o, *file)
			if err != nil {
				return err
			}

			api, err := a.open()
			if err != nil {
				return err
			}

			opts := content.WriteOptions{ExpectedChecksum: *expect}

			var sum string

			if collection, id, ok := strings.Cut(args[0], "/"); ok {
				c, err := api.Collection(collection)
				if err != nil {
					return err
				}

				sum, err = c.PutRaw(ctx, id, data, opts)
				if err != nil {
					return err
				}
			} else {
				s, err := api.Static(args[0])
				if err != nil {
					return err
				}

				sum, err = s.PutRaw(ctx, data, opts)
				if err != nil {
					return err
				}
			}

			o.Println(sum)

			return nil
		},
	}
}

func newCmd(a *app) *Command {
	flags := newFlags("new")
	file := flags.StringP("file", "f", "-", "Read the document from `path` (- for stdin)")

	return &Command{
		Flags: flags,
		Usage: "new <collection> [flags]",
		Short: "Create a collection document",
		Long:  `Validate a JSON document and store it under a new time-ordered id. Prints "<id>\t<checksum>".`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, "collection"); err != nil {
				return err
			}

			data, err := a.readInput(o, *file)
			if err != nil {
				return err
			}

			value, err := schema.DecodeJSON(data)
			if err != nil {
				return fmt.Errorf("%w: %w", cms.ErrMalformedJSON, err)
			}

			api, err := a.open()
			if err != nil {
				return err
			}

			c, err := api.Collection(args[0])
			if err != nil {
				return err
			}

			id, sum, err := c.Create(ctx, value)
			if err != nil {
				return err
			}

			o.Printf("%s\t%s\n", id, sum)

			return nil
		},
	}
}

func rmCmd(a *app) *Command {
	flags := newFlags("rm")
	expect := flags.String("expect", "", "Only delete if the current checksum is `sha`")

	return &Command{
		Flags: flags,
		Usage: "rm <collection> <id> [flags]",
		Short: "Delete a collection document",
		Exec: func(ctx context.Context, _ *IO, args []string) error {
			if err := wantArgs(args, "collection", "id"); err != nil {
				return err
			}

			api, err := a.open()
			if err != nil {
				return err
			}

			c, err := api.Collection(args[0])
			if err != nil {
				return err
			}

			return c.Delete(ctx, args[1], content.WriteOptions{ExpectedChecksum: *expect})
		},
	}
}

func (a *app) readInput(o *IO, path string) ([]byte, error) {
	if path != "-" {
		if !filepath.IsAbs(path) && a.workDir != "" {
			path = filepath.Join(a.workDir, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		return data, nil
	}

	if o.In() == nil {
		return nil, fmt.Errorf("%w: pass --file or pipe a document to stdin", ErrNoInput)
	}

	data, err := io.ReadAll(o.In())
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: stdin is empty", ErrNoInput)
	}

	return data, nil
}
