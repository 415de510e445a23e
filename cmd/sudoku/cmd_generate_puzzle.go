package main

import (
	"context"
	"os"

	"github.com/nijks777/sudoku/log"
	"github.com/nijks777/sudoku/option"
	"github.com/nijks777/sudoku/puzzle"
	"github.com/nijks777/sudoku/storage"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/json"

	"github.com/spf13/cobra"
)

var (
	generateDifficulty string
	generateSize       int
	generateCount      int
	generateSeed       int64
	generateStorePath  string
)

var commandGeneratePuzzle = &cobra.Command{
	Use:   "puzzle",
	Short: "Generate Sudoku puzzles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := generatePuzzles()
		if err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	commandGeneratePuzzle.Flags().StringVarP(&generateDifficulty, "difficulty", "d", "medium", "puzzle difficulty")
	commandGeneratePuzzle.Flags().IntVarP(&generateSize, "size", "s", 9, "grid size")
	commandGeneratePuzzle.Flags().IntVarP(&generateCount, "count", "n", 1, "number of puzzles")
	commandGeneratePuzzle.Flags().Int64Var(&generateSeed, "seed", 0, "deterministic generator seed")
	commandGeneratePuzzle.Flags().StringVar(&generateStorePath, "store", "", "save puzzles into the database at path instead of printing")
	commandGenerate.AddCommand(commandGeneratePuzzle)
}

func generatePuzzles() error {
	difficulty, err := puzzle.ParseDifficulty(generateDifficulty)
	if err != nil {
		return err
	}
	if _, err = puzzle.ConfigForSize(generateSize); err != nil {
		return err
	}
	if generateCount < 1 {
		return E.New("invalid count: ", generateCount)
	}
	generator := puzzle.NewGenerator(puzzle.GeneratorOptions{Seed: generateSeed})
	var store *storage.Store
	if generateStorePath != "" {
		store = storage.NewStore(context.Background(), option.StorageOptions{Path: generateStorePath})
		err = store.PreStart()
		if err != nil {
			return err
		}
		defer store.Close()
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	for i := 0; i < generateCount; i++ {
		generated, err := generator.Generate(difficulty, generateSize)
		if err != nil {
			return E.Cause(err, "generate puzzle ", i+1)
		}
		if store != nil {
			stored, err := store.SavePuzzle(generated)
			if err != nil {
				return E.Cause(err, "save puzzle ", i+1)
			}
			os.Stdout.WriteString(stored.ID + "\n")
			continue
		}
		err = encoder.Encode(generated)
		if err != nil {
			return err
		}
	}
	return nil
}
