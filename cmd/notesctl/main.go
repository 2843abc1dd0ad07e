package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/galib-hossain-meraz/youtube-notes/client"
)

var (
	baseURL string
	email   string
	debug   bool
	retries int
	timeout time.Duration
)

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "notesctl",
		Short:         "Read and manage video notes from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			log.Logger = log.Output(zerolog.ConsoleWriter{
				Out:        cmd.ErrOrStderr(),
				TimeFormat: "2006-01-02 15:04:05",
				NoColor:    true,
			})
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				log.Debug().Msg("debug logging enabled")
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Notes service URL (default $NOTES_BASE_URL or http://localhost:8000)")
	rootCmd.PersistentFlags().StringVar(&email, "email", os.Getenv("NOTES_EMAIL"), "Account email; the password is read from $NOTES_PASSWORD or prompted")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output including HTTP dumps")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "Retry transient read failures this many times")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall command timeout")

	rootCmd.AddCommand(newLinkCmd())
	rootCmd.AddCommand(newMeCmd())
	rootCmd.AddCommand(newNotesCmd())
	rootCmd.AddCommand(newShellCmd())
	return rootCmd
}

// ----------------------------- Session ------------------------------

// connect builds a client and, when an email is configured, signs in. The
// session lives only as long as the process.
func connect(ctx context.Context, cmd *cobra.Command) (*client.Client, error) {
	cfg, err := client.LoadConfig()
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c, err := client.NewFromConfig(cfg,
		client.WithLogger(log.Logger),
		client.WithDebugLogging(debug),
		client.WithSignInRedirect(func(path string) {
			log.Warn().Str("path", path).Msg("session expired, sign in again")
		}),
	)
	if err != nil {
		return nil, err
	}
	if email == "" {
		if _, err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	}
	password, err := readPassword(cmd)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	start := time.Now()
	if _, err := c.Login(ctx, client.LoginRequest{Email: email, Password: password}); err != nil {
		_ = c.Close()
		log.Error().Err(err).Str("email", email).Dur("elapsed", time.Since(start)).Msg("login failed")
		return nil, err
	}
	log.Debug().Str("email", email).Dur("elapsed", time.Since(start)).Msg("signed in")
	return c, nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	if p := os.Getenv("NOTES_PASSWORD"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to prompt for a password; set NOTES_PASSWORD")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	c, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

func retryPolicy() client.RetryPolicy {
	p := client.DefaultRetryPolicy()
	p.MaxAttempts = retries + 1
	return p
}

// ----------------------------- Commands ------------------------------

func newLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <video-url> <timestamp>",
		Short: "Print a link that opens the video at MM:SS or HH:MM:SS",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), client.TimestampLink(args[0], args[1]))
			return nil
		},
	}
}

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				return printSession(cmd.OutOrStdout(), c.Session())
			})
		},
	}
}

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List, read, create, update and delete notes",
	}
	cmd.AddCommand(newNotesListCmd(), newNotesGetCmd(), newNotesCreateCmd(), newNotesUpdateCmd(), newNotesDeleteCmd())
	return cmd
}

func newNotesListCmd() *cobra.Command {
	var params client.ListNotesParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				res, err := client.Retry(ctx, retryPolicy(), func(ctx context.Context) (client.QueryResult[*client.NotePage], error) {
					return c.ListNotes(ctx, params, client.BlockOnStale())
				})
				if err != nil {
					return err
				}
				return printPage(cmd.OutOrStdout(), res.Data)
			})
		},
	}
	cmd.Flags().IntVar(&params.CurrentPage, "page", 0, "Page number (1-based)")
	cmd.Flags().IntVar(&params.PageSize, "page-size", 0, "Notes per page (max 100)")
	cmd.Flags().StringVar(&params.Search, "search", "", "Filter by title or summary")
	return cmd
}

func newNotesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one note as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				res, err := client.Retry(ctx, retryPolicy(), func(ctx context.Context) (client.QueryResult[*client.Note], error) {
					return c.GetNote(ctx, id, client.BlockOnStale())
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res.Data)
			})
		},
	}
}

func newNotesCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <video-url>",
		Short: "Summarize a video into a new note (can take minutes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				start := time.Now()
				n, err := c.CreateNote(ctx, client.CreateNoteRequest{SourceURL: args[0]})
				if err != nil {
					return err
				}
				log.Debug().Int64("note_id", n.ID).Dur("elapsed", time.Since(start)).Msg("note created")
				return printJSON(cmd.OutOrStdout(), n)
			})
		},
	}
}

func newNotesUpdateCmd() *cobra.Command {
	var title, summary string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a note's title or summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var req client.UpdateNoteRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("summary") {
				req.Summary = &summary
			}
			if req.Title == nil && req.Summary == nil {
				return fmt.Errorf("nothing to update: pass --title or --summary")
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				n, err := c.UpdateNote(ctx, id, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), n)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&summary, "summary", "", "New summary")
	return cmd
}

func newNotesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				if err := c.DeleteNote(ctx, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}
}

// ----------------------------- Shell ------------------------------

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session that keeps one sign-in and one cache",
		Long: `Reads commands from stdin, one per line:

  me | list [page] | get <id> | create <url> | delete <id> |
  link <url> <timestamp> | refresh | logout | quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return runShell(ctx, c, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runShell(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := shellCommand(ctx, c, fields, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func shellCommand(ctx context.Context, c *client.Client, fields []string, out io.Writer) error {
	arg := func(i int) (string, error) {
		if len(fields) <= i {
			return "", fmt.Errorf("%s: missing argument", fields[0])
		}
		return fields[i], nil
	}
	switch fields[0] {
	case "me":
		return printSession(out, c.Session())
	case "list":
		var p client.ListNotesParams
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("list: page must be a number")
			}
			p.CurrentPage = n
		}
		res, err := c.ListNotes(ctx, p)
		if err != nil {
			return err
		}
		if res.Stale {
			fmt.Fprintln(out, "(cached, refreshing)")
		}
		return printPage(out, res.Data)
	case "get":
		s, err := arg(1)
		if err != nil {
			return err
		}
		id, err := parseID(s)
		if err != nil {
			return err
		}
		res, err := c.GetNote(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(out, res.Data)
	case "create":
		u, err := arg(1)
		if err != nil {
			return err
		}
		n, err := c.CreateNote(ctx, client.CreateNoteRequest{SourceURL: u})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %d\n", n.ID)
		return nil
	case "delete":
		s, err := arg(1)
		if err != nil {
			return err
		}
		id, err := parseID(s)
		if err != nil {
			return err
		}
		if err := c.DeleteNote(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(out, "OK")
		return nil
	case "link":
		if len(fields) != 3 {
			return fmt.Errorf("link: want <url> <timestamp>")
		}
		fmt.Fprintln(out, client.TimestampLink(fields[1], fields[2]))
		return nil
	case "refresh":
		_, err := c.RefreshToken(ctx)
		if err != nil {
			return err
		}
		return printSession(out, c.Session())
	case "logout":
		if err := c.Logout(ctx); err != nil {
			return err
		}
		return printSession(out, c.Session())
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

// ----------------------------- Output ------------------------------

func printSession(w io.Writer, s client.Session) error {
	if !s.Authenticated() {
		_, err := fmt.Fprintf(w, "%s\n", s.Status)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\t%s <%s>\n", s.Status, s.Identity.FullName(), s.Identity.Email)
	return err
}

func printPage(w io.Writer, p *client.NotePage) error {
	if p == nil {
		return nil
	}
	for _, n := range p.Items {
		title := ""
		if n.Title != nil {
			title = *n.Title
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", n.ID, title, n.SourceURL)
	}
	_, err := fmt.Fprintf(w, "Page %d/%d, total: %d\n", p.CurrentPage, p.TotalPages, p.TotalItems)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", s)
	}
	return id, nil
}
