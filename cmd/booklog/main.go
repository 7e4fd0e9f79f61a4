package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/booklog/booklog/internal/clients"
	"github.com/booklog/booklog/internal/shelf"
	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/booklog/booklog/pkg/client"
	"github.com/booklog/booklog/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const usage = `usage: booklog [-server URL] [-v] <command> [flags]

commands:
  list     [-filter all|reading|done] [-sort title|author|stars|createdAt]
  show     <id>
  add      -title T -author A [-status reading|done] [-stars N] [-review R]
  edit     <id> [-title T] [-author A] [-status S] [-stars N] [-review R]
  delete   <id>
  signup   -name N -email E -password P
  login    -email E -password P
  logout
  whoami
  health   [-addr host:port]

environment:
  BOOKLOG_SERVER  API base URL (default http://localhost:8080)
  BOOKLOG_TOKEN   session token printed by signup/login
  BOOKLOG_GRPC    daemon health address (default localhost:50051)
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("booklog", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	server := global.String("server", envOr("BOOKLOG_SERVER", "http://localhost:8080"), "API base URL")
	verbose := global.Bool("v", false, "log request errors")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	log := logger.NewCLILogger(*verbose)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []client.Option
	if token := os.Getenv("BOOKLOG_TOKEN"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	c, err := client.New(*server, opts...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	s := shelf.New(c, stdout, log)

	cmd, rest := global.Arg(0), global.Args()[1:]
	err = dispatch(ctx, s, cmd, rest, stdout, stderr, log)

	var formErr *shelf.FormError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.As(err, &formErr):
		shelf.RenderFormError(stderr, formErr)
		return 1
	default:
		fmt.Fprintln(stderr, err)
		return 1
	}
}

var errUsage = errors.New("usage")

func dispatch(ctx context.Context, s *shelf.Shelf, cmd string, args []string, stdout, stderr io.Writer, log *zap.Logger) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch cmd {
	case "list":
		filter := fs.String("filter", string(shelf.FilterAll), "all, reading or done")
		sortBy := fs.String("sort", string(shelf.SortCreatedAt), "title, author, stars or createdAt")
		if err := parse(fs, args); err != nil {
			return err
		}
		f, err := shelf.ParseFilter(*filter)
		if err != nil {
			return err
		}
		by, err := shelf.ParseSort(*sortBy)
		if err != nil {
			return err
		}
		return s.List(ctx, shelf.ListOptions{Filter: f, Sort: by})

	case "show", "delete":
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := bookID(fs)
		if err != nil {
			return err
		}
		if cmd == "show" {
			return s.Show(ctx, id)
		}
		return s.Delete(ctx, id)

	case "add":
		form := bookFlags(fs)
		if err := parse(fs, args); err != nil {
			return err
		}
		req := bookapi.CreateBookRequest{Title: *form.title, Author: *form.author}
		form.apply(fs, &req.Status, &req.Stars, &req.Review)
		return s.Add(ctx, req)

	case "edit":
		form := bookFlags(fs)
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := bookID(fs)
		if err != nil {
			return err
		}
		var req bookapi.UpdateBookRequest
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "title":
				req.Title = form.title
			case "author":
				req.Author = form.author
			}
		})
		form.apply(fs, &req.Status, &req.Stars, &req.Review)
		return s.Edit(ctx, id, req)

	case "signup":
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password, at least 8 characters")
		if err := parse(fs, args); err != nil {
			return err
		}
		token, err := s.SignUp(ctx, bookapi.SignUpRequest{Name: *name, Email: *email, Password: *password})
		if err != nil {
			return err
		}
		printToken(stdout, token)
		return nil

	case "login":
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		if err := parse(fs, args); err != nil {
			return err
		}
		token, err := s.SignIn(ctx, bookapi.SignInRequest{Email: *email, Password: *password})
		if err != nil {
			return err
		}
		printToken(stdout, token)
		return nil

	case "logout":
		if err := parse(fs, args); err != nil {
			return err
		}
		return s.SignOut(ctx)

	case "whoami":
		if err := parse(fs, args); err != nil {
			return err
		}
		return s.WhoAmI(ctx)

	case "health":
		addr := fs.String("addr", envOr("BOOKLOG_GRPC", "localhost:50051"), "daemon gRPC address")
		if err := parse(fs, args); err != nil {
			return err
		}
		return probe(ctx, *addr, stdout, log)
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
	return errUsage
}

// parse maps flag errors, including -h, to errUsage; the flag package has
// already printed the details.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

type bookForm struct {
	title, author, status, review *string
	stars                         *int
}

func bookFlags(fs *flag.FlagSet) bookForm {
	return bookForm{
		title:  fs.String("title", "", "book title"),
		author: fs.String("author", "", "book author"),
		status: fs.String("status", "", "reading or done"),
		stars:  fs.Int("stars", 0, "rating from 1 to 5"),
		review: fs.String("review", "", "short review"),
	}
}

// apply copies the optional flags the user actually set.
func (f bookForm) apply(fs *flag.FlagSet, status **bookapi.Status, stars **int, review **string) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "status":
			*status = bookapi.Ptr(bookapi.Status(*f.status))
		case "stars":
			*stars = f.stars
		case "review":
			*review = f.review
		}
	})
}

func bookID(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("%s: expected exactly one book id", fs.Name())
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s: invalid book id %q", fs.Name(), fs.Arg(0))
	}
	return id, nil
}

func printToken(w io.Writer, token string) {
	fmt.Fprintf(w, "\nTo stay signed in:\n  export BOOKLOG_TOKEN=%s\n", token)
}

func probe(ctx context.Context, addr string, w io.Writer, log *zap.Logger) error {
	hc, err := clients.NewHealthClient(addr, log)
	if err != nil {
		return err
	}
	defer hc.Close()

	status, err := hc.Probe(ctx, 5*time.Second)
	if err != nil {
		return fmt.Errorf("booklogd at %s is unreachable. Is it running?", addr)
	}
	fmt.Fprintf(w, "%s: %s\n", addr, status)
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("booklogd at %s is not serving", addr)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
