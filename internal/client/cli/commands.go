package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/bookdrive/internal/client/models"
	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

// Input indirections, swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

var errNotSignedIn = errors.New("not signed in; use signin or signup first")

// execute parses args with a fresh command tree so flag values never leak
// between lines.
func (a *App) execute(ctx context.Context, args []string) error {
	root := a.newRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if errors.Is(err, common.ErrorUnauthorized) && a.isLoggedIn() {
		a.endSession(ctx)
		return fmt.Errorf("%w; please sign in again", err)
	}
	return err
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookdrive",
		Short:         "Manage your books on a BookDrive server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(a.out)
	root.SetErr(a.out)

	root.AddCommand(
		a.signUpCommand(),
		a.signInCommand(),
		a.signOutCommand(),
		a.whoAmICommand(),
		a.listCommand(),
		a.publicCommand(),
		a.showCommand(),
		a.uploadCommand(),
		a.renameCommand(),
		a.visibilityCommand("share", "Make a book visible to everyone", true),
		a.visibilityCommand("unshare", "Make a book private again", false),
		a.describeCommand(),
		a.replaceCommand(),
		a.deleteCommand(),
		a.downloadCommand(),
	)
	return root
}

func (a *App) requireLogin(*cobra.Command, []string) error {
	if !a.isLoggedIn() {
		return errNotSignedIn
	}
	return nil
}

func (a *App) signUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, err := getSimpleText(a.reader, "Enter name", a.out)
			if err != nil {
				return err
			}
			email, err := getSimpleText(a.reader, "Enter email", a.out)
			if err != nil {
				return err
			}
			password, err := getPassword(a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			s, err := a.api.SignUp(cmd.Context(), name, email, string(password))
			if err != nil {
				return err
			}
			a.startSession(cmd.Context(), s)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s\n", s.User.Email)
			return nil
		},
	}
}

func (a *App) signInCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "signin",
		Aliases: []string{"login"},
		Short:   "Sign in with email and password",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := getSimpleText(a.reader, "Enter email", a.out)
			if err != nil {
				return err
			}
			password, err := getPassword(a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			s, err := a.api.SignIn(cmd.Context(), email, string(password))
			if err != nil {
				return err
			}
			a.startSession(cmd.Context(), s)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", s.User.Email)
			return nil
		},
	}
}

func (a *App) signOutCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "signout",
		Aliases: []string{"logout"},
		Short:   "Sign out and revoke the session",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.api.SignOut(cmd.Context())
			a.endSession(cmd.Context())
			if err != nil && !errors.Is(err, common.ErrorUnauthorized) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (a *App) whoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Short:   "Show the signed-in account",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", u.Name, u.Email, u.ID)
			return nil
		},
	}
}

func printBooks(w io.Writer, books []models.Book, empty string) {
	if len(books) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, b := range books {
		fmt.Fprintln(w, b)
	}
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list", "l"},
		Short:   "List your books",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.api.ListMine(cmd.Context())
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books, "No books yet")
			return nil
		},
	}
}

func (a *App) publicCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "public",
		Short: "List books shared by everyone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.api.ListPublic(cmd.Context())
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books, "No public books")
			return nil
		},
	}
}

func (a *App) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.api.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ID:          %s\n", b.ID)
			fmt.Fprintf(w, "Title:       %s\n", b.Title)
			fmt.Fprintf(w, "Author:      %s\n", b.Author)
			fmt.Fprintf(w, "Visibility:  %s\n", b.Visibility())
			if b.Description != "" {
				fmt.Fprintf(w, "Description: %s\n", b.Description)
			}
			if b.FileName != "" {
				fmt.Fprintf(w, "File:        %s\n", b.FileName)
			}
			fmt.Fprintf(w, "Updated:     %s\n", b.UpdatedAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

// checkBookFile rejects paths that are not PDF or EPUB files before any
// bytes are sent.
func checkBookFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return err
	}
	if !mimetype.EqualsAny(mtype.String(), common.BookContentTypes...) {
		return fmt.Errorf("%s is %s; only PDF and EPUB files can be uploaded", path, mtype.String())
	}
	return nil
}

func (a *App) uploadCommand() *cobra.Command {
	var nb models.NewBook

	cmd := &cobra.Command{
		Use:     "upload [path]",
		Aliases: []string{"add"},
		Short:   "Add a book, optionally with a PDF or EPUB file",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				nb.Path = args[0]
				if err := checkBookFile(nb.Path); err != nil {
					return err
				}
			}

			var err error
			if strings.TrimSpace(nb.Title) == "" {
				if nb.Title, err = getSimpleText(a.reader, "Enter title", a.out); err != nil {
					return err
				}
			}
			if strings.TrimSpace(nb.Author) == "" {
				if nb.Author, err = getSimpleText(a.reader, "Enter author", a.out); err != nil {
					return err
				}
			}

			b, err := a.api.Create(cmd.Context(), nb)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", b)
			return nil
		},
	}

	cmd.Flags().StringVarP(&nb.Title, "title", "t", "", "book title")
	cmd.Flags().StringVarP(&nb.Author, "author", "a", "", "book author")
	cmd.Flags().StringVarP(&nb.Description, "description", "d", "", "book description")
	cmd.Flags().BoolVarP(&nb.IsPublic, "public", "p", false, "share the book with everyone")
	return cmd
}

func (a *App) update(cmd *cobra.Command, id string, patch models.BookPatch) error {
	b, err := a.api.Update(cmd.Context(), id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", b)
	return nil
}

func (a *App) renameCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rename <id> <title>",
		Short:   "Change a book's title",
		Args:    cobra.MinimumNArgs(2),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args[1:], " ")
			return a.update(cmd, args[0], models.BookPatch{Title: &title})
		},
	}
}

func (a *App) visibilityCommand(use, short string, public bool) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <id>",
		Short:   short,
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(cmd, args[0], models.BookPatch{IsPublic: &public})
		},
	}
}

func (a *App) describeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "describe <id>",
		Short:   "Replace a book's description",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := getMultiline(a.reader, "Enter description", a.out)
			if err != nil {
				return err
			}
			return a.update(cmd, args[0], models.BookPatch{Description: &text})
		},
	}
}

func (a *App) replaceCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "replace <id> <path>",
		Short:   "Attach a new file to a book",
		Args:    cobra.ExactArgs(2),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkBookFile(args[1]); err != nil {
				return err
			}
			b, err := a.api.ReplaceFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", b)
			return nil
		},
	}
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a book and its file",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[0])
			return nil
		},
	}
}

func (a *App) downloadCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save a book's file locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.config.DownloadDir
			}
			path, err := a.api.Download(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "target directory")
	return cmd
}
