//go:build ignore

// Публикует тестовый запрос на детекцию блоков и ждёт ответа воркера:
//
//	go run scripts/test_publish.go -redis localhost:6379
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/territory-service/internal/domain"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	timeout := flag.Duration("timeout", 2*time.Minute, "How long to wait for the done event")
	flag.Parse()

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Небольшой квартал в центре Торонто
	event := domain.BlocksRequestedEvent{
		RequestID:   uuid.New(),
		TerritoryID: "test-territory",
		Name:        "Financial District",
		Boundary: [][2]float64{
			{-79.383, 43.649}, {-79.383, 43.651}, {-79.378, 43.651}, {-79.378, 43.649}, {-79.383, 43.649},
		},
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	// Читаем done-стрим с начала, чужие ответы отфильтровываются по request_id
	lastID := "0"

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamBlocksRequested,
		Values: map[string]interface{}{"data": string(payload)},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish: %v", err)
	}
	fmt.Printf("Published %s (request_id=%s)\n", id, event.RequestID)

	for {
		streams, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{domain.StreamBlocksDone, lastID},
			Count:   10,
			Block:   5 * time.Second,
		}).Result()
		if err == redis.Nil {
			fmt.Println("Waiting for worker...")
			continue
		}
		if err != nil {
			log.Fatalf("Failed to read done stream: %v", err)
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				lastID = msg.ID
				data, _ := msg.Values["data"].(string)

				var done domain.BlocksDoneEvent
				if err := json.Unmarshal([]byte(data), &done); err != nil {
					log.Printf("Skipping malformed message %s: %v", msg.ID, err)
					continue
				}
				if done.RequestID != event.RequestID {
					continue
				}

				if done.Error != "" {
					log.Fatalf("Worker returned error: %s", done.Error)
				}
				fmt.Printf("Grid %dx%d, %d blocks\n", done.GridSize, done.GridSize, len(done.Blocks))
				for _, b := range done.Blocks {
					fmt.Printf("  %s: %d buildings on %d streets\n", b.ID, len(b.Buildings), len(b.Streets))
				}
				return
			}
		}
	}
}
