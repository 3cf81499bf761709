package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/docchat/internal/conversation"
	"github.com/csheth/docchat/internal/ragapi"
)

const documentsTimeout = 15 * time.Second

// DocumentService lists and deletes indexed documents for the picker.
type DocumentService interface {
	ListSummaries(ctx context.Context) ([]ragapi.Document, error)
	DeleteIndex(ctx context.Context, fileID string) (*ragapi.DeleteResponse, error)
}

// queryJob runs the gateway call of req. The controller owns cancellation and timeouts
// through the request's own context, so the job context is not used.
func queryJob(req *conversation.Request) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		outcome := req.Run()
		return queryResultMsg{outcome: outcome}, outcome.Err
	}
}

func listDocumentsJob(docs DocumentService) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		if docs == nil {
			err := errors.New("document listing is not configured")
			return documentsResultMsg{err: err}, err
		}
		ctx, cancel := context.WithTimeout(parent, documentsTimeout)
		defer cancel()
		documents, err := docs.ListSummaries(ctx)
		return documentsResultMsg{documents: documents, err: err}, err
	}
}

func deleteIndexJob(docs DocumentService, fileID string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		if docs == nil {
			err := errors.New("document deletion is not configured")
			return deleteResultMsg{fileID: fileID, err: err}, err
		}
		ctx, cancel := context.WithTimeout(parent, documentsTimeout)
		defer cancel()
		resp, err := docs.DeleteIndex(ctx, fileID)
		if err != nil {
			return deleteResultMsg{fileID: fileID, err: err}, err
		}
		message := strings.TrimSpace(resp.Message)
		if message == "" {
			message = "Deleted index " + fileID + "."
		}
		return deleteResultMsg{fileID: fileID, message: message}, nil
	}
}
