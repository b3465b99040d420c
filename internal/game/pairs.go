package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// DefaultPairs is the built-in question/answer pool used when no pairs file
// is configured.
var DefaultPairs = []domain.Pair{
	{ID: 1, Text: "1-Tier Architecture", Answer: "The DBMS software like MySQL which is used to access the database directly"},
	{ID: 2, Text: "2-Tier Architecture", Answer: "The MySQL Workbench which acts as a client application to access the database"},
	{ID: 3, Text: "3-Tier Architecture", Answer: "Any web-based application where the client interacts through a server, for example, Rakshak AI"},
	{ID: 4, Text: "N-Tier Architecture", Answer: "Large enterprise systems having multiple layers such as presentation, application, and database servers"},
}

// LoadPairs reads a question/answer pool from a YAML file. An empty path
// returns the built-in pool.
func LoadPairs(path string) ([]domain.Pair, error) {
	if path == "" {
		return DefaultPairs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pairs file: %w", err)
	}

	var pairs []domain.Pair
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parsing pairs file: %w", err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("pairs file %s contains no pairs", path)
	}

	for i := range pairs {
		if pairs[i].ID == 0 {
			pairs[i].ID = i + 1
		}
	}
	return pairs, nil
}

// AnswerFor returns the canonical answer text for a question id within a pool.
func AnswerFor(pairs []domain.Pair, questionID int) (string, bool) {
	for _, p := range pairs {
		if p.ID == questionID {
			return p.Answer, true
		}
	}
	return "", false
}
