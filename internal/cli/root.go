// Package cli implements the taskloop terminal client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"taskloop-sync/internal/config"
	"taskloop-sync/internal/infra/setup"
	"taskloop-sync/internal/repository"
	"taskloop-sync/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errLoginRequired = errors.New("not logged in, run `taskloop login` first")

// app holds what the commands share. It is opened lazily so that commands
// such as `config init` work without a reachable API.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	stores *setup.Stores
	apis   *setup.APIs
	auth   *service.AuthService
	rooms  *service.RoomService
}

func (a *app) open() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Keep the terminal clean unless asked otherwise.
	level := logrus.WarnLevel.String()
	if a.verbose {
		level = logrus.DebugLevel.String()
	}
	setup.ConfigureStandardLogger(setup.NewLogger(cfg.AppEnv, level, os.Stderr))

	stores, err := setup.InitStores(cfg)
	if err != nil {
		return fmt.Errorf("failed to open device store: %w", err)
	}
	a.cfg = cfg
	a.stores = stores
	a.apis = setup.InitAPIs(cfg, stores.Device)
	a.auth = service.NewAuthService(a.apis.Auth, stores.Device)
	a.rooms = service.NewRoomService(a.apis.Rooms, cfg.ShareBaseURL, cfg.Sync.CreateCheckInterval)
	return nil
}

// wrap opens the app for a command and releases it when the command ends.
func (a *app) wrap(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}

func (a *app) close() {
	if a.stores != nil {
		if err := a.stores.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close device store")
		}
	}
}

// cliNavigator remembers the room to return to when the API asks for a
// login. Each command prints its own result, so Home does nothing.
type cliNavigator struct {
	store repository.DeviceStore
	login chan struct{}
	once  sync.Once
}

func newNavigator(store repository.DeviceStore) *cliNavigator {
	return &cliNavigator{store: store, login: make(chan struct{})}
}

func (n *cliNavigator) Home() {}

func (n *cliNavigator) Login(from string) {
	n.once.Do(func() {
		if err := n.store.Set(context.Background(), repository.KeyAuthRedirect, from); err != nil {
			logrus.WithError(err).Warn("Failed to remember room for after login")
		}
		close(n.login)
	})
}

// openSession starts a controller for roomUUID and waits for its initial
// load. On success the caller owns the controller and must Close it.
func (a *app) openSession(ctx context.Context, roomUUID string, nav *cliNavigator) (*service.SessionSync, error) {
	if err := service.ValidateRoomUUID(roomUUID); err != nil {
		return nil, err
	}
	s := service.NewSessionSync(roomUUID, service.SyncDeps{
		Auth:      a.apis.Auth,
		Rooms:     a.apis.Rooms,
		Tasks:     a.apis.Tasks,
		Navigator: nav,
	}, service.SyncOptions{PollInterval: a.cfg.Sync.PollInterval})
	s.Start(ctx)

	if err := s.WaitLoaded(ctx); err != nil {
		s.Close()
		return nil, err
	}
	st := s.Snapshot()
	if st.Room == nil {
		s.Close()
		if st.ErrorKind == service.KindUnauthorized {
			return nil, errLoginRequired
		}
		return nil, errors.New(st.Error)
	}
	return s, nil
}

// withSession runs fn against a loaded controller and closes it afterwards.
func (a *app) withSession(cmd *cobra.Command, roomUUID string, fn func(s *service.SessionSync) error) error {
	nav := newNavigator(a.stores.Device)
	s, err := a.openSession(cmd.Context(), roomUUID, nav)
	if err != nil {
		return err
	}
	defer s.Close()
	return loginError(fn(s))
}

// loginError turns a rejected token into the login hint.
func loginError(err error) error {
	if err != nil && service.Classify(err) == service.KindUnauthorized {
		return errLoginRequired
	}
	return err
}

// NewRootCmd builds the command tree. Each call returns independent state.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "taskloop",
		Short: "Study rooms from the terminal",
		Long: `taskloop manages TaskLoop study rooms: log in, create and share rooms,
and work through your tasks while watching everyone's progress.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.taskloop/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRoomsCmd(a),
		newCreateCmd(a),
		newRenameCmd(a),
		newLeaveCmd(a),
		newDeleteCmd(a),
		newShareCmd(a),
		newWatchCmd(a),
		newTaskCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the CLI until the command finishes or the process is
// interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd(version), os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, stderr io.Writer) error {
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return err
	}
	return nil
}
