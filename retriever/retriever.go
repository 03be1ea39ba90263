// Package retriever answers questions from a user's email and attachment collections.
package retriever

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbxark/mailagent/types"
	"github.com/tbxark/mailagent/vectorstore"
)

// Searcher is the part of the vector store gateway the retriever needs.
type Searcher interface {
	Collections(user string) (vectorstore.Collections, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Search(ctx context.Context, collection string, vector []float32, k int, threshold float32) ([]types.ScoredDocument, error)
}

type Params struct {
	K         int
	Threshold float32
}

// SearchParams derives per-collection limits from the query analysis.
func SearchParams(a types.QueryAnalysis) (emails, attachments Params) {
	emails = Params{K: 2, Threshold: 0.75}
	if a.PrimaryFocus == types.FocusEmails {
		emails = Params{K: 5, Threshold: 0.65}
	}
	attachments = Params{K: 1, Threshold: 0.75}
	if a.PrimaryFocus == types.FocusAttachments {
		attachments = Params{K: 3, Threshold: 0.65}
	}
	return emails, attachments
}

type Retriever struct {
	searcher      Searcher
	classifier    *Classifier
	searchTimeout time.Duration
}

type Option func(*Retriever)

func WithClassifier(c *Classifier) Option {
	return func(r *Retriever) {
		r.classifier = c
	}
}

func WithSearchTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		r.searchTimeout = d
	}
}

func New(searcher Searcher, opts ...Option) *Retriever {
	r := &Retriever{searcher: searcher}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Retriever) analyze(ctx context.Context, query string) types.QueryAnalysis {
	if r.classifier == nil {
		return types.DefaultQueryAnalysis()
	}
	return r.classifier.Classify(ctx, query)
}

// Retrieve searches both collections concurrently and returns the formatted context,
// emails first. It fails only when the query cannot be embedded or both searches fail.
func (r *Retriever) Retrieve(ctx context.Context, userEmail, query string) (string, error) {
	cols, err := r.searcher.Collections(userEmail)
	if err != nil {
		return "", err
	}
	analysis := r.analyze(ctx, query)
	emailParams, attachmentParams := SearchParams(analysis)

	vec, err := r.searcher.EmbedQuery(ctx, query)
	if err != nil {
		return "", err
	}

	var (
		emailDocs, attachmentDocs []types.ScoredDocument
		emailErr, attachmentErr   error
	)
	// each search reports its own failure so one cannot cancel the other
	var g errgroup.Group
	g.Go(func() error {
		emailDocs, emailErr = r.search(ctx, cols.Emails, vec, emailParams)
		if emailErr != nil {
			log.Error().Err(emailErr).Str("collection", cols.Emails).Msg("email search failed")
		} else {
			log.Debug().Int("count", len(emailDocs)).Msg("found relevant emails")
		}
		return nil
	})
	g.Go(func() error {
		attachmentDocs, attachmentErr = r.search(ctx, cols.Attachments, vec, attachmentParams)
		if attachmentErr != nil {
			log.Error().Err(attachmentErr).Str("collection", cols.Attachments).Msg("attachment search failed")
		} else {
			log.Debug().Int("count", len(attachmentDocs)).Msg("found relevant attachments")
		}
		return nil
	})
	_ = g.Wait()

	if emailErr != nil && attachmentErr != nil {
		return "", errors.Wrap(emailErr, "both searches failed")
	}
	return FormatDocuments(append(emailDocs, attachmentDocs...)), nil
}

func (r *Retriever) search(ctx context.Context, collection string, vec []float32, p Params) ([]types.ScoredDocument, error) {
	if r.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.searchTimeout)
		defer cancel()
	}
	return r.searcher.Search(ctx, collection, vec, p.K, p.Threshold)
}
