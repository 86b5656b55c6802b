// Command nanoadmin inspects and repairs a running NanoBroker video
// channel out of process: show buffer status and active consumers,
// forcefully remove a dead consumer ID, or delete the shared memory
// segment when a crashed producer leaves it behind.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/gosuri/uilive"

	"github.com/nanobroker/nanobroker/broker"
	"github.com/nanobroker/nanobroker/videoframe"
)

func printHelp() {
	fmt.Println(`Usage: nanoadmin <command> [args]
Commands:
  stats       Show buffer status and active consumers
  kick <id>   Forcefully remove a dead consumer ID
  clean       Delete the shared memory segment (fix startup error)`)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printHelp()
		return 1
	}

	switch args[0] {
	case "clean":
		if err := broker.Unlink(videoframe.TopicName); err != nil {
			log.Println(err)
			return 1
		}
		return 0

	case "stats":
		return runStats()

	case "kick":
		if len(args) < 2 {
			log.Println("error: provide the consumer ID to kick")
			return 1
		}

		id, err := strconv.Atoi(args[1])
		if err != nil {
			log.Println("error: consumer ID must be an integer:", err)
			return 1
		}

		return runKick(id)

	default:
		printHelp()
		return 1
	}
}

func runStats() int {
	admin, err := broker.NewAdmin[videoframe.Frame](videoframe.TopicName)
	if err != nil {
		log.Println(err)
		log.Println("(is the producer running? nanoadmin needs the segment to exist)")
		return 1
	}
	defer admin.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	writer := uilive.New()
	head := writer.Newline()
	capacity := writer.Newline()
	consumers := writer.Newline()

	consumerLines := make([]io.Writer, broker.MaxConsumers)
	for i := range consumerLines {
		consumerLines[i] = writer.Newline()
	}

	writer.Start()
	defer writer.Stop()

	render := func() {
		s := admin.Stats()

		fmt.Fprintf(head, "Head: %d\n", s.Head)
		fmt.Fprintf(capacity, "Capacity: %d\n", s.Capacity)
		fmt.Fprintf(consumers, "Active consumers: %d\n", len(s.Consumers))

		for i, line := range consumerLines {
			if i < len(s.Consumers) {
				c := s.Consumers[i]
				fmt.Fprintf(line, "  consumer %d: tail=%d age=%dms\n", c.ID, c.Tail, c.AgeMillis)
			} else {
				fmt.Fprintln(line)
			}
		}
	}

	render()

	for {
		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
			render()
		}
	}
}

func runKick(id int) int {
	admin, err := broker.NewAdmin[videoframe.Frame](videoframe.TopicName)
	if err != nil {
		log.Println(err)
		return 1
	}
	defer admin.Close()

	if err := admin.ForceDisconnectConsumer(id); err != nil {
		log.Println(err)
		return 1
	}

	fmt.Printf("consumer %d disconnected\n", id)
	return 0
}
