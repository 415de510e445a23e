package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	C "github.com/nijks777/sudoku/constant"
	"github.com/nijks777/sudoku/game"
	"github.com/nijks777/sudoku/option"
	"github.com/nijks777/sudoku/puzzle"

	"github.com/gofrs/uuid/v5"
	"github.com/sagernet/bbolt"
	bboltErrors "github.com/sagernet/bbolt/errors"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/json"
	"github.com/sagernet/sing/service/filemanager"
)

var (
	bucketPuzzles      = []byte("puzzles")
	bucketPuzzleIndex  = []byte("puzzle_index")
	bucketMatchResults = []byte("match_results")
	bucketScores       = []byte("scores")

	bucketNameList = []string{
		string(bucketPuzzles),
		string(bucketPuzzleIndex),
		string(bucketMatchResults),
		string(bucketScores),
	}
)

var _ game.ResultStore = (*Store)(nil)

// StoredPuzzle wraps a generated puzzle with the identity and timestamp
// assigned on insert.
type StoredPuzzle struct {
	ID string `json:"id"`
	puzzle.GeneratedPuzzle
	CreatedAt time.Time `json:"createdAt"`
}

type Score struct {
	ID          string    `json:"id"`
	PlayerName  string    `json:"playerName"`
	Difficulty  string    `json:"difficulty"`
	GridSize    int       `json:"gridSize"`
	TimeSeconds int       `json:"timeSeconds"`
	Mistakes    int       `json:"mistakes"`
	HintsUsed   int       `json:"hintsUsed"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Store struct {
	ctx  context.Context
	path string

	DB *bbolt.DB
}

func NewStore(ctx context.Context, options option.StorageOptions) *Store {
	path := options.Path
	if path == "" {
		path = C.DefaultStorePath
	}
	return &Store{
		ctx:  ctx,
		path: filemanager.BasePath(ctx, path),
	}
}

func (s *Store) start() error {
	const fileMode = 0o666
	options := bbolt.Options{Timeout: time.Second}
	var (
		db  *bbolt.DB
		err error
	)
	for i := 0; i < 10; i++ {
		db, err = bbolt.Open(s.path, fileMode, &options)
		if err == nil {
			break
		}
		if errors.Is(err, bboltErrors.ErrTimeout) {
			continue
		}
		if E.IsMulti(err, bboltErrors.ErrInvalid, bboltErrors.ErrChecksum, bboltErrors.ErrVersionMismatch) {
			rmErr := os.Remove(s.path)
			if rmErr != nil {
				return err
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		return err
	}
	err = filemanager.Chown(s.ctx, s.path)
	if err != nil {
		db.Close()
		return E.Cause(err, "platform chown")
	}
	err = db.Batch(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, bucket *bbolt.Bucket) error {
			if !common.Contains(bucketNameList, string(name)) {
				_ = tx.DeleteBucket(name)
			}
			return nil
		})
	})
	if err != nil {
		db.Close()
		return err
	}
	s.DB = db
	return nil
}

func (s *Store) PreStart() error {
	return s.start()
}

func (s *Store) Start() error {
	return nil
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// PoolKey identifies one puzzle pool, one nested bucket per
// difficulty/size pair.
func PoolKey(difficulty string, gridSize int) string {
	return difficulty + "/" + strconv.Itoa(gridSize)
}

func (s *Store) SavePuzzle(generated *puzzle.GeneratedPuzzle) (*StoredPuzzle, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	stored := &StoredPuzzle{
		ID:              id.String(),
		GeneratedPuzzle: *generated,
		CreatedAt:       time.Now(),
	}
	content, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	poolKey := PoolKey(string(generated.Difficulty), generated.GridSize)
	err = s.DB.Batch(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketPuzzles)
		if err != nil {
			return err
		}
		pool, err := root.CreateBucketIfNotExists([]byte(poolKey))
		if err != nil {
			return err
		}
		err = pool.Put([]byte(stored.ID), content)
		if err != nil {
			return err
		}
		index, err := tx.CreateBucketIfNotExists(bucketPuzzleIndex)
		if err != nil {
			return err
		}
		return index.Put([]byte(stored.ID), []byte(poolKey))
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *Store) LoadPuzzle(id string) (*StoredPuzzle, error) {
	var stored StoredPuzzle
	err := s.DB.View(func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketPuzzleIndex)
		if index == nil {
			return os.ErrNotExist
		}
		poolKey := index.Get([]byte(id))
		if poolKey == nil {
			return os.ErrNotExist
		}
		root := tx.Bucket(bucketPuzzles)
		if root == nil {
			return os.ErrNotExist
		}
		pool := root.Bucket(poolKey)
		if pool == nil {
			return os.ErrNotExist
		}
		content := pool.Get([]byte(id))
		if content == nil {
			return os.ErrNotExist
		}
		return json.Unmarshal(content, &stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) LoadPool(difficulty string, gridSize int, limit int) ([]*StoredPuzzle, error) {
	if limit <= 0 || limit > C.MaxPoolSize {
		limit = C.MaxPoolSize
	}
	var pool []*StoredPuzzle
	err := s.DB.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketPuzzles)
		if root == nil {
			return nil
		}
		bucket := root.Bucket([]byte(PoolKey(difficulty, gridSize)))
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for key, content := cursor.First(); key != nil && len(pool) < limit; key, content = cursor.Next() {
			var stored StoredPuzzle
			err := json.Unmarshal(content, &stored)
			if err != nil {
				return E.Cause(err, "decode puzzle ", string(key))
			}
			pool = append(pool, &stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *Store) PoolCount(difficulty string, gridSize int) int {
	var count int
	s.DB.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketPuzzles)
		if root == nil {
			return nil
		}
		bucket := root.Bucket([]byte(PoolKey(difficulty, gridSize)))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	return count
}

func (s *Store) SaveMatchResult(result game.MatchResult) error {
	content, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.DB.Batch(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketMatchResults)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(result.RoomCode), content)
	})
}

func (s *Store) LoadMatchResult(roomCode string) (*game.MatchResult, error) {
	var result game.MatchResult
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMatchResults)
		if bucket == nil {
			return os.ErrNotExist
		}
		content := bucket.Get([]byte(roomCode))
		if content == nil {
			return os.ErrNotExist
		}
		return json.Unmarshal(content, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Store) SaveScore(score *Score) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	score.ID = id.String()
	score.CreatedAt = time.Now()
	content, err := json.Marshal(score)
	if err != nil {
		return err
	}
	// Keys sort by completion time, so an in-order cursor walk is already
	// leaderboard order.
	key := fmt.Sprintf("%010d\x00%s", score.TimeSeconds, score.ID)
	return s.DB.Batch(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketScores)
		if err != nil {
			return err
		}
		bucket, err := root.CreateBucketIfNotExists([]byte(PoolKey(score.Difficulty, score.GridSize)))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), content)
	})
}

func (s *Store) TopScores(difficulty string, gridSize int, limit int) ([]*Score, error) {
	if limit <= 0 {
		limit = C.DefaultLeaderboardSize
	}
	var scores []*Score
	err := s.DB.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketScores)
		if root == nil {
			return nil
		}
		bucket := root.Bucket([]byte(PoolKey(difficulty, gridSize)))
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for key, content := cursor.First(); key != nil && len(scores) < limit; key, content = cursor.Next() {
			var score Score
			err := json.Unmarshal(content, &score)
			if err != nil {
				return E.Cause(err, "decode score ", string(key))
			}
			scores = append(scores, &score)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}
