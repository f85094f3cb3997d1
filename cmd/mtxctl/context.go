package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"mtx-console/internal/console"
	"mtx-console/internal/mediamtx"
	"mtx-console/internal/platform/config"
	"mtx-console/internal/platform/logger"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type commandContext struct {
	profileFlag *string
	apiURLFlag  *string
	hlsURLFlag  *string
	userFlag    *string
	verbose     *bool

	profileOnce sync.Once
	profile     profile
	profileErr  error

	// stdin is read for the password when it is not a terminal.
	stdin io.Reader
}

func newCommandContext(profileFlag, apiURLFlag, hlsURLFlag, userFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		profileFlag: profileFlag,
		apiURLFlag:  apiURLFlag,
		hlsURLFlag:  hlsURLFlag,
		userFlag:    userFlag,
		verbose:     verbose,
		stdin:       os.Stdin,
	}
}

func (c *commandContext) ensureProfile() (profile, error) {
	c.profileOnce.Do(func() {
		path := strings.TrimSpace(*c.profileFlag)
		explicit := path != ""
		if !explicit {
			path = defaultProfilePath()
		}
		c.profile, c.profileErr = loadProfile(path, explicit)
	})
	return c.profile, c.profileErr
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (c *commandContext) apiURL() string {
	p, _ := c.ensureProfile()
	return pick(*c.apiURLFlag, os.Getenv("MEDIAMTX_API_URL"), p.APIURL, config.DefaultAPIURL)
}

func (c *commandContext) hlsURL() string {
	p, _ := c.ensureProfile()
	return pick(*c.hlsURLFlag, os.Getenv("MEDIAMTX_HLS_URL"), p.HLSURL, config.DefaultHLSURL)
}

func (c *commandContext) catchAll() string {
	p, _ := c.ensureProfile()
	return pick(os.Getenv("MEDIAMTX_CATCHALL_PATH"), p.CatchAllPath, config.DefaultCatchAllPath)
}

func (c *commandContext) logger() *slog.Logger {
	level := "error"
	if *c.verbose {
		level = "debug"
	}
	return logger.NewWithWriter(os.Stderr, level, "text")
}

// credentials resolves the operator name and password. The password comes
// from MTX_PASSWORD or a prompt and is never stored.
func (c *commandContext) credentials(cmd *cobra.Command) (string, string, error) {
	p, _ := c.ensureProfile()
	user := pick(*c.userFlag, os.Getenv("MTX_USER"), p.Username)
	if user == "" {
		return "", "", errors.New("no user given: use --user, MTX_USER or the profile username")
	}
	if pw, ok := os.LookupEnv("MTX_PASSWORD"); ok {
		return user, pw, nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", user)
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		return user, string(b), nil
	}
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return user, strings.TrimRight(line, "\r\n"), nil
}

// session logs in and waits for the first reconciliation. Callers must Close
// the returned console.
func (c *commandContext) session(cmd *cobra.Command) (*console.Console, error) {
	if _, err := c.ensureProfile(); err != nil {
		return nil, err
	}
	user, pw, err := c.credentials(cmd)
	if err != nil {
		return nil, err
	}

	log := c.logger()
	client := mediamtx.NewClient(c.apiURL(), mediamtx.NewCredentialStore())
	con := console.New(client, console.NewInMemoryRepository(), console.Options{
		HLSURL:     c.hlsURL(),
		Reconciler: console.ReconcilerConfig{CatchAll: c.catchAll()},
	}, log, nil)

	ctx := commandCtx(cmd)
	if err := con.Login(ctx, user, pw); err != nil {
		con.Close()
		return nil, describe(err)
	}
	if _, err := con.Refresh(ctx); err != nil {
		con.Close()
		return nil, describe(err)
	}
	return con, nil
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// describe prefixes control-plane errors with their kind so operators can
// tell a bad password from an unreachable server.
func describe(err error) error {
	if errors.Is(err, console.ErrMutationInFlight) {
		return err
	}
	if k := mediamtx.KindOf(err); k != 0 {
		return fmt.Errorf("%s: %w", k, err)
	}
	return err
}
