package provider

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/nijks777/sudoku/adapter"
	C "github.com/nijks777/sudoku/constant"
	"github.com/nijks777/sudoku/log"
	"github.com/nijks777/sudoku/option"
	"github.com/nijks777/sudoku/puzzle"
	"github.com/nijks777/sudoku/storage"

	"github.com/sagernet/sing/common/batch"
	"github.com/sagernet/sing/common/cache"
	E "github.com/sagernet/sing/common/exceptions"
)

var _ adapter.LifecycleService = (*PuzzleProvider)(nil)

// leaderboardFetchSize is how many scores one cache entry holds; request
// limits above it bypass the cache.
const leaderboardFetchSize = 100

type poolConfig struct {
	difficulty puzzle.Difficulty
	gridSize   int
}

// PuzzleProvider fronts the storage pools with a TTL cache and keeps them
// filled in the background. Cache misses fall through to storage, and an
// empty pool degrades to generating a puzzle inline.
type PuzzleProvider struct {
	ctx          context.Context
	cancel       context.CancelFunc
	logger       log.ContextLogger
	store        *storage.Store
	generator    *puzzle.Generator
	pools        *cache.LruCache[string, []*storage.StoredPuzzle]
	leaderboards *cache.LruCache[string, []*storage.Score]
	poolSize     int
	poolTTL      time.Duration
	configs      []poolConfig

	refillAccess sync.Mutex
	refilling    map[string]bool
}

func NewPuzzleProvider(ctx context.Context, logger log.ContextLogger, store *storage.Store, options option.PuzzlesOptions) (*PuzzleProvider, error) {
	poolSize := options.PoolSize
	if poolSize == 0 {
		poolSize = C.DefaultPoolSize
	} else if poolSize > C.MaxPoolSize {
		poolSize = C.MaxPoolSize
	}
	poolTTL := time.Duration(options.PoolTTL)
	if poolTTL == 0 {
		poolTTL = C.PuzzlePoolTTL
	}
	difficulties := options.Difficulties
	if len(difficulties) == 0 {
		difficulties = []string{
			string(puzzle.DifficultyEasy),
			string(puzzle.DifficultyMedium),
			string(puzzle.DifficultyHard),
		}
	}
	sizes := options.Sizes
	if len(sizes) == 0 {
		sizes = []int{4, 6, 9, 12}
	}
	var configs []poolConfig
	for _, rawDifficulty := range difficulties {
		difficulty, err := puzzle.ParseDifficulty(rawDifficulty)
		if err != nil {
			return nil, E.Cause(err, "parse puzzles.difficulties")
		}
		for _, size := range sizes {
			_, err = puzzle.ConfigForSize(size)
			if err != nil {
				return nil, E.Cause(err, "parse puzzles.sizes")
			}
			configs = append(configs, poolConfig{difficulty: difficulty, gridSize: size})
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &PuzzleProvider{
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
		store:        store,
		generator:    puzzle.NewGenerator(puzzle.GeneratorOptions{Seed: options.Seed}),
		pools:        cache.New[string, []*storage.StoredPuzzle](),
		leaderboards: cache.New[string, []*storage.Score](),
		poolSize:     poolSize,
		poolTTL:      poolTTL,
		configs:      configs,
		refilling:    make(map[string]bool),
	}, nil
}

func (p *PuzzleProvider) Name() string {
	return "puzzle provider"
}

func (p *PuzzleProvider) Start(stage adapter.StartStage) error {
	if stage != adapter.StartStatePostStart {
		return nil
	}
	go p.prefill()
	return nil
}

func (p *PuzzleProvider) Close() error {
	p.cancel()
	return nil
}

// prefill tops up every configured pool to the target size.
func (p *PuzzleProvider) prefill() {
	b, _ := batch.New(p.ctx, batch.WithConcurrencyNum[any](4))
	for _, config := range p.configs {
		config := config
		key := storage.PoolKey(string(config.difficulty), config.gridSize)
		b.Go(key, func() (any, error) {
			p.fill(key, config)
			return nil, nil
		})
	}
	b.Wait()
	if p.ctx.Err() == nil {
		p.logger.Debug("puzzle pools prefilled")
	}
}

func (p *PuzzleProvider) fill(key string, config poolConfig) {
	for p.store.PoolCount(string(config.difficulty), config.gridSize) < p.poolSize {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		generated, err := p.generator.Generate(config.difficulty, config.gridSize)
		if err != nil {
			p.logger.Error(E.Cause(err, "fill pool ", key))
			return
		}
		_, err = p.store.SavePuzzle(generated)
		if err != nil {
			p.logger.Error(E.Cause(err, "fill pool ", key))
			return
		}
	}
	pool, err := p.store.LoadPool(string(config.difficulty), config.gridSize, p.poolSize)
	if err != nil {
		p.logger.Error(E.Cause(err, "reload pool ", key))
		return
	}
	p.pools.StoreWithExpire(key, pool, time.Now().Add(p.poolTTL))
}

// Take returns a random puzzle from the requested pool. A cold cache falls
// through to storage, and an empty pool generates inline so the request
// never fails just because the pool is behind.
func (p *PuzzleProvider) Take(ctx context.Context, rawDifficulty string, gridSize int) (*storage.StoredPuzzle, error) {
	difficulty, err := puzzle.ParseDifficulty(rawDifficulty)
	if err != nil {
		return nil, err
	}
	_, err = puzzle.ConfigForSize(gridSize)
	if err != nil {
		return nil, err
	}
	config := poolConfig{difficulty: difficulty, gridSize: gridSize}
	key := storage.PoolKey(string(difficulty), gridSize)
	pool, cached := p.pools.Load(key)
	if !cached {
		pool, err = p.store.LoadPool(string(difficulty), gridSize, p.poolSize)
		if err != nil {
			return nil, err
		}
		p.pools.StoreWithExpire(key, pool, time.Now().Add(p.poolTTL))
	}
	if len(pool) == 0 {
		p.logger.DebugContext(ctx, "pool ", key, " empty, generating inline")
		generated, err := p.generator.Generate(difficulty, gridSize)
		if err != nil {
			return nil, err
		}
		stored, err := p.store.SavePuzzle(generated)
		if err != nil {
			return nil, err
		}
		p.refillAsync(key, config)
		return stored, nil
	}
	if len(pool) < p.poolSize {
		p.refillAsync(key, config)
	}
	return pool[rand.Intn(len(pool))], nil
}

// Puzzle re-fetches a previously served puzzle by id.
func (p *PuzzleProvider) Puzzle(id string) (*storage.StoredPuzzle, error) {
	return p.store.LoadPuzzle(id)
}

func (p *PuzzleProvider) refillAsync(key string, config poolConfig) {
	p.refillAccess.Lock()
	if p.refilling[key] {
		p.refillAccess.Unlock()
		return
	}
	p.refilling[key] = true
	p.refillAccess.Unlock()
	go func() {
		defer func() {
			p.refillAccess.Lock()
			delete(p.refilling, key)
			p.refillAccess.Unlock()
		}()
		p.fill(key, config)
	}()
}

// SubmitScore persists a single-player score and invalidates the cached
// leaderboard for its pool.
func (p *PuzzleProvider) SubmitScore(score *storage.Score) error {
	_, err := puzzle.ParseDifficulty(score.Difficulty)
	if err != nil {
		return err
	}
	_, err = puzzle.ConfigForSize(score.GridSize)
	if err != nil {
		return err
	}
	err = p.store.SaveScore(score)
	if err != nil {
		return err
	}
	p.leaderboards.Delete(storage.PoolKey(score.Difficulty, score.GridSize))
	return nil
}

// Leaderboard is a read-through cache over the stored score ranking.
func (p *PuzzleProvider) Leaderboard(rawDifficulty string, gridSize int, limit int) ([]*storage.Score, error) {
	difficulty, err := puzzle.ParseDifficulty(rawDifficulty)
	if err != nil {
		return nil, err
	}
	_, err = puzzle.ConfigForSize(gridSize)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = C.DefaultLeaderboardSize
	}
	if limit > leaderboardFetchSize {
		return p.store.TopScores(string(difficulty), gridSize, limit)
	}
	key := storage.PoolKey(string(difficulty), gridSize)
	scores, cached := p.leaderboards.Load(key)
	if !cached {
		scores, err = p.store.TopScores(string(difficulty), gridSize, leaderboardFetchSize)
		if err != nil {
			return nil, err
		}
		p.leaderboards.StoreWithExpire(key, scores, time.Now().Add(C.LeaderboardTTL))
	}
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

// PoolStatus reports per-pool fill levels, used by the status endpoint.
func (p *PuzzleProvider) PoolStatus() map[string]int {
	status := make(map[string]int)
	for _, config := range p.configs {
		key := storage.PoolKey(string(config.difficulty), config.gridSize)
		status[key] = p.store.PoolCount(string(config.difficulty), config.gridSize)
	}
	return status
}
