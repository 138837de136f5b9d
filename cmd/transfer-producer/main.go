// Command transfer-producer replays a JSON-lines transfer dump onto the
// Kafka ingest topic.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"github.com/career-sequence-game/internal/domain"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "transfer-records", "Kafka topic")
	file := flag.String("file", "transfers.jsonl", "JSON-lines transfer dump to replay")
	rate := flag.Int("rate", 0, "Records per second (0 = unthrottled)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open dump file: %v", err)
	}
	defer f.Close()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	// Handle producer errors and successes
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

	var throttle <-chan time.Time
	if *rate > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(*rate))
		defer ticker.Stop()
		throttle = ticker.C
	}

	sent := 0
	malformed := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record domain.TransferRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			malformed++
			continue
		}

		data, err := json.Marshal(record)
		if err != nil {
			malformed++
			continue
		}

		if throttle != nil {
			<-throttle
		}

		// Key by player so one player's transfers stay ordered per partition
		producer.Input() <- &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(record.PlayerID),
			Value: sarama.ByteEncoder(data),
		}
		sent++

		if sent%10000 == 0 {
			fmt.Printf("  sent %d records...\n", sent)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Failed reading dump file: %v", err)
	}

	producer.AsyncClose()
	wg.Wait()

	fmt.Printf("Completed. Sent: %d, Delivered: %d, Errors: %d, Malformed: %d\n",
		sent,
		atomic.LoadInt64(&successCount),
		atomic.LoadInt64(&errorCount),
		malformed,
	)
}
