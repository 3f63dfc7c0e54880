package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/easylease/sublease/internal/data"
)

// messageFeed yields messages as the database stores them.
type messageFeed interface {
	Next(ctx context.Context) (*data.Message, error)
	Close(ctx context.Context) error
}

// runFeed pushes every message from feed to the hub until ctx ends or the
// feed fails. It closes the feed before returning.
func runFeed(ctx context.Context, feed messageFeed, hub *ConnectionHub) error {
	defer func() {
		if err := feed.Close(context.Background()); err != nil {
			log.Printf("close message feed: %v", err)
		}
	}()

	for {
		m, err := feed.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("message feed: %w", err)
		}
		hub.Publish(toWireMessage(m))
	}
}
