package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/siherrmann/medrag/core/gateway"
	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/retrieval"
	"github.com/siherrmann/medrag/core/store"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// StoreOpener opens the vector store. It is called lazily and again after a failure.
type StoreOpener func(ctx context.Context) (store.Client, error)

// Services holds the long lived collaborators shared by all requests.
// The store is opened on first use.
type Services struct {
	Encoder pipeline.Encoder
	Gateway gateway.Gateway
	Engine  *retrieval.Engine

	openStore      StoreOpener
	collectionName string
	log            *slog.Logger

	mu         sync.Mutex
	client     store.Client
	collection store.Collection
}

// NewServices wires the encoder, store and gateway into a retrieval engine.
func NewServices(encoder pipeline.Encoder, openStore StoreOpener, collectionName string, gw gateway.Gateway, logger *slog.Logger) (*Services, error) {
	if encoder == nil {
		return nil, helper.NewError("new services", fmt.Errorf("%w: encoder is required", model.ErrConfiguration))
	}
	if openStore == nil {
		return nil, helper.NewError("new services", fmt.Errorf("%w: store opener is required", model.ErrConfiguration))
	}
	if gw == nil {
		return nil, helper.NewError("new services", fmt.Errorf("%w: gateway is required", model.ErrConfiguration))
	}
	if collectionName == "" {
		collectionName = helper.DefaultCollection
	}

	s := &Services{
		Encoder:        encoder,
		Gateway:        gw,
		openStore:      openStore,
		collectionName: collectionName,
		log:            logger,
	}
	s.Engine = retrieval.NewEngine(encoder, s.Collection)

	return s, nil
}

// Collection returns the knowledge collection, opening the store on first use.
// Failures wrap model.ErrStoreInit and are retried on the next call.
func (s *Services) Collection(ctx context.Context) (store.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection != nil {
		return s.collection, nil
	}

	if s.client == nil {
		client, err := s.openStore(ctx)
		if err != nil {
			s.log.Error("Failed to open vector store", slog.String("error", err.Error()))
			if errors.Is(err, model.ErrStoreInit) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
		}
		s.client = client
	}

	collection, err := s.client.EnsureCollection(ctx, s.collectionName)
	if err != nil {
		s.log.Error("Failed to open collection", slog.String("collection", s.collectionName), slog.String("error", err.Error()))
		if errors.Is(err, model.ErrStoreInit) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
	}
	s.collection = collection

	s.log.Info("Opened knowledge collection", slog.String("collection", s.collectionName))

	return s.collection, nil
}

// Close releases the store and the encoder.
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.client != nil {
		errs = append(errs, s.client.Close())
		s.client = nil
		s.collection = nil
	}
	if closer, ok := s.Encoder.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}

	return errors.Join(errs...)
}
