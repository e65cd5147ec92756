package cli

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/calvinalkan/cms/pkg/cms"
)

func getCmd(a *app) *Command {
	flags := newFlags("get")
	sumOnly := flags.Bool("checksum", false, "Print only the checksum")

	return &Command{
		Flags: flags,
		Usage: "get <static> [flags]",
		Short: "Print a static document",
		Long:  "Read a static document, validate it against its schema and print the validated value.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, "static"); err != nil {
				return err
			}

			api, err := a.open()
			if err != nil {
				return err
			}

			s, err := api.Static(args[0])
			if err != nil {
				return err
			}

			doc, err := s.Get(ctx)
			if err != nil {
				return err
			}

			return printDocument(o, doc, *sumOnly)
		},
	}
}

func showCmd(a *app) *Command {
	flags := newFlags("show")
	sumOnly := flags.Bool("checksum", false, "Print only the checksum")

	return &Command{
		Flags: flags,
		Usage: "show <collection> <id> [flags]",
		Short: "Print a collection document",
		Long:  "Read one collection document, validate it and print the validated value.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
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

			doc, err := c.Get(ctx, args[1])
			if err != nil {
				return err
			}

			return printDocument(o, doc, *sumOnly)
		},
	}
}

func lsCmd(a *app) *Command {
	flags := newFlags("ls")
	idsOnly := flags.Bool("ids", false, "List ids without reading the documents")

	return &Command{
		Flags: flags,
		Usage: "ls <collection> [flags]",
		Short: "List collection documents",
		Long: `List every document of a collection as "<id>\t<checksum>".

All documents are read and validated; one bad document fails the listing.
Use --ids to list names only.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args, "collection"); err != nil {
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

			if *idsOnly {
				ids, err := c.IDs(ctx)
				if err != nil {
					return err
				}

				for _, id := range ids {
					o.Println(id)
				}

				return nil
			}

			docs, err := c.GetAll(ctx)
			if err != nil {
				return err
			}

			for _, doc := range docs {
				o.Printf("%s\t%s\n", doc.Name, doc.Checksum)
			}

			return nil
		},
	}
}

func printDocument(o *IO, doc cms.Document, sumOnly bool) error {
	if sumOnly {
		o.Println(doc.Checksum)
		return nil
	}

	data, err := json.MarshalIndent(doc.Value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", doc.Path, err)
	}

	o.Println(string(data))

	return nil
}

// wantArgs checks that args holds exactly the named positional arguments.
func wantArgs(args []string, names ...string) error {
	if len(args) < len(names) {
		return fmt.Errorf("%w: <%s>", ErrMissingArgument, names[len(args)])
	}

	if len(args) > len(names) {
		return fmt.Errorf("%w: %v", ErrTooManyArguments, args[len(names):])
	}

	return nil
}
