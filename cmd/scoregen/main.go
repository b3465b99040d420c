package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/nirajbawa/match-pair-game/internal/domain"
	"github.com/nirajbawa/match-pair-game/internal/game"
)

var usernamePrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
	"Ace", "Bolt", "Crash", "Dash", "Edge", "Flash", "Glitch", "Haze", "Ion", "Jade",
	"Knight", "Luna", "Mystic", "Neon", "Orion", "Pulse", "Quantum", "Rebel", "Spark", "Turbo",
}

func getUsername(idx int) string {
	prefixIdx := idx % len(usernamePrefixes)
	suffix := idx/len(usernamePrefixes) + 1
	return fmt.Sprintf("%s%d", usernamePrefixes[prefixIdx], suffix)
}

// playGame runs one simulated attempt: answers are matched mostly correctly,
// with the occasional swap, and the board is graded the same way the server
// grades it.
func playGame(pairs []domain.Pair) (score, total int) {
	engine := game.NewEngine(pairs, nil)
	questions := engine.Questions()
	answers := engine.Answers()

	// Pick the right answer most of the time, a random one otherwise.
	for _, q := range questions {
		canonical, _ := game.AnswerFor(pairs, q.ID)
		picked := answers[rand.Intn(len(answers))]
		if rand.Intn(100) < 75 {
			for _, a := range answers {
				if a.Text == canonical && !engine.IsAnswerUsed(a.ID) {
					picked = a
					break
				}
			}
		}
		if engine.IsAnswerUsed(picked.ID) {
			for _, a := range answers {
				if !engine.IsAnswerUsed(a.ID) {
					picked = a
					break
				}
			}
		}
		engine.ProposeMatch(q.ID, picked.ID)
	}

	score, err := engine.Submit(context.Background(), func(context.Context, int) error { return nil })
	if err != nil {
		return 0, engine.Total()
	}
	return score, engine.Total()
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "game-scores", "Kafka topic")
	totalPlayers := flag.Int("players", 100, "Total number of simulated players")
	rate := flag.Int("rate", 10, "Games per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	pairsFile := flag.String("pairs", "", "Optional pairs file (defaults to the built-in set)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	pairs, err := game.LoadPairs(*pairsFile)
	if err != nil {
		log.Fatalf("Failed to load pairs: %v", err)
	}

	fmt.Printf("Score generator: brokers=%s topic=%s players=%d rate=%d/s\n",
		*brokers, *topic, *totalPlayers, *rate)

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Stable identities so repeated runs update the same players
	playerIDs := make([]string, *totalPlayers)
	for i := range playerIDs {
		playerIDs[i] = uuid.NewString()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Second / time.Duration(*rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	shutdown := func() {
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("Completed. Sent: %d, Errors: %d\n",
			atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			shutdown()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("Duration reached, shutting down...")
				shutdown()
				return
			}

			idx := rand.Intn(*totalPlayers)
			score, total := playGame(pairs)

			event := domain.ScoreEvent{
				PlayerID:  playerIDs[idx],
				Username:  getUsername(idx),
				GameID:    uuid.NewString(),
				Score:     score,
				Total:     total,
				EventType: "score_submitted",
			}

			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Failed to marshal event: %v", err)
				continue
			}

			producer.Input() <- &sarama.ProducerMessage{
				Topic: *topic,
				Key:   sarama.StringEncoder(event.PlayerID),
				Value: sarama.ByteEncoder(data),
			}
		}
	}
}
