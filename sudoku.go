package sudoku

import (
	"context"
	"os"
	"time"

	"github.com/nijks777/sudoku/adapter"
	"github.com/nijks777/sudoku/api"
	"github.com/nijks777/sudoku/game"
	"github.com/nijks777/sudoku/log"
	"github.com/nijks777/sudoku/option"
	"github.com/nijks777/sudoku/provider"
	"github.com/nijks777/sudoku/storage"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
	F "github.com/sagernet/sing/common/format"
)

var _ adapter.SimpleLifecycle = (*Box)(nil)

// Box composes the whole server: storage, the puzzle provider, the
// multiplayer game handler and the API surface, driven through the staged
// lifecycle.
type Box struct {
	createdAt       time.Time
	ctx             context.Context
	logFactory      log.Factory
	logger          log.ContextLogger
	store           *storage.Store
	provider        *provider.PuzzleProvider
	registry        *game.Registry
	handler         *game.Handler
	internalService []adapter.LifecycleService
	done            chan struct{}
}

type Options struct {
	option.Options
	Context context.Context
}

func New(options Options) (*Box, error) {
	createdAt := time.Now()
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logFactory, err := log.New(log.Options{
		Context:    ctx,
		Options:    common.PtrValueOrDefault(options.Log),
		Observable: true,
		BaseTime:   createdAt,
	})
	if err != nil {
		return nil, E.Cause(err, "create log factory")
	}

	var internalServices []adapter.LifecycleService
	store := storage.NewStore(ctx, common.PtrValueOrDefault(options.Storage))
	internalServices = append(internalServices, adapter.NewLifecycleService(store, "storage"))

	puzzleProvider, err := provider.NewPuzzleProvider(ctx, logFactory.NewLogger("provider"), store, common.PtrValueOrDefault(options.Puzzles))
	if err != nil {
		return nil, E.Cause(err, "create puzzle provider")
	}
	internalServices = append(internalServices, puzzleProvider)

	registry := game.NewRegistry()
	multiplayerOptions := common.PtrValueOrDefault(options.Multiplayer)
	handler := game.NewHandler(
		logFactory.NewLogger("game"),
		registry,
		store,
		time.Duration(multiplayerOptions.CompletedRoomGrace),
	)

	observableFactory, isObservable := logFactory.(log.ObservableFactory)
	if !isObservable {
		return nil, E.New("missing observable log factory")
	}
	server, err := api.NewServer(ctx, observableFactory, handler, puzzleProvider, common.PtrValueOrDefault(options.API))
	if err != nil {
		return nil, E.Cause(err, "create api server")
	}
	internalServices = append(internalServices, server)

	return &Box{
		createdAt:       createdAt,
		ctx:             ctx,
		logFactory:      logFactory,
		logger:          logFactory.Logger(),
		store:           store,
		provider:        puzzleProvider,
		registry:        registry,
		handler:         handler,
		internalService: internalServices,
		done:            make(chan struct{}),
	}, nil
}

func (s *Box) PreStart() error {
	err := s.preStart()
	if err != nil {
		s.Close()
		return err
	}
	s.logger.Info("sudoku pre-started (", F.Seconds(time.Since(s.createdAt).Seconds()), "s)")
	return nil
}

func (s *Box) Start() error {
	err := s.start()
	if err != nil {
		s.Close()
		return err
	}
	s.logger.Info("sudoku started (", F.Seconds(time.Since(s.createdAt).Seconds()), "s)")
	return nil
}

func (s *Box) preStart() error {
	err := s.logFactory.Start()
	if err != nil {
		return E.Cause(err, "start logger")
	}
	return adapter.StartNamed(adapter.StartStateInitialize, s.internalService)
}

func (s *Box) start() error {
	err := s.preStart()
	if err != nil {
		return err
	}
	err = adapter.StartNamed(adapter.StartStateStart, s.internalService)
	if err != nil {
		return err
	}
	err = adapter.StartNamed(adapter.StartStatePostStart, s.internalService)
	if err != nil {
		return err
	}
	return adapter.StartNamed(adapter.StartStateStarted, s.internalService)
}

func (s *Box) Close() error {
	select {
	case <-s.done:
		return os.ErrClosed
	default:
		close(s.done)
	}
	var err error
	for _, lifecycleService := range s.internalService {
		err = E.Append(err, lifecycleService.Close(), func(err error) error {
			return E.Cause(err, "close ", lifecycleService.Name())
		})
	}
	err = E.Append(err, s.logFactory.Close(), func(err error) error {
		return E.Cause(err, "close logger")
	})
	return err
}

func (s *Box) Store() *storage.Store {
	return s.store
}

func (s *Box) Handler() *game.Handler {
	return s.handler
}

func (s *Box) Provider() *provider.PuzzleProvider {
	return s.provider
}
