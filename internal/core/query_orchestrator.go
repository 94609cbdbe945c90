package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"studydesk.io/rag-companion/internal/logging"
	"studydesk.io/rag-companion/internal/ragclient"
	"studydesk.io/rag-companion/internal/store"
	"studydesk.io/rag-companion/internal/telemetry"
)

const (
	FailReasonUnavailable = "remote_unavailable"
	FailReasonRejected    = "remote_rejected"
	FailReasonCancelled   = "cancelled"
	FailReasonTimeout     = "timeout"
)

const (
	failureNotice   = "I'm sorry, I encountered an error while processing your request."
	cancelledNotice = "This request was cancelled before an answer arrived."
	timeoutNotice   = "The answer service took too long to respond. Please try asking again."
)

type QueryOptions struct {
	TopK         int
	HistoryDepth int
	Timeout      time.Duration
}

// AskResult describes one complete question/answer exchange, including
// failed ones: a failed ask still produces an assistant message so the
// session log stays a complete record of what was attempted.
type AskResult struct {
	SessionID         string           `json:"sessionId"`
	QuestionMessageID string           `json:"questionMessageId"`
	AnswerMessageID   string           `json:"answerMessageId"`
	Answer            string           `json:"answer"`
	Citations         []store.Citation `json:"citations,omitempty"`
	Failed            bool             `json:"failed"`
	FailReason        string           `json:"failReason,omitempty"`
}

// QueryOrchestrator runs one question at a time: it resolves the retrieval
// scope, writes the user half of the exchange, calls the remote service and
// writes the assistant half into the same session the question landed in.
type QueryOrchestrator struct {
	store   *store.SessionStore
	rag     RAGService
	titler  *TitleService // optional
	opts    QueryOptions
	pending atomic.Bool
}

func NewQueryOrchestrator(st *store.SessionStore, rag RAGService, titler *TitleService, opts QueryOptions) *QueryOrchestrator {
	if opts.TopK <= 0 {
		opts.TopK = 6
	}
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 5
	}
	return &QueryOrchestrator{store: st, rag: rag, titler: titler, opts: opts}
}

// Ask processes a single question. Validation failures and local storage
// failures return an error; remote failures are folded into the returned
// result as an in-band failed exchange.
func (o *QueryOrchestrator) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ValidationError{Reason: "question must not be empty"}
	}

	if !o.pending.CompareAndSwap(false, true) {
		return nil, ErrQueryInFlight
	}
	defer o.pending.Store(false)

	// Scope and history are resolved before the exchange is written. The
	// session id returned by the append below is the anchor for the whole
	// exchange; later selection changes cannot move the answer elsewhere.
	scope := o.store.Selection()
	var history []ragclient.HistoryTurn
	hadSession := false
	if current := o.store.GetCurrentSession(); current != nil {
		hadSession = true
		history = historyTurns(current.Messages, o.opts.HistoryDepth)
	}

	sessionID, questionMessageID, err := o.store.AppendMessageToCurrent(store.RoleUser, question, nil)
	if err != nil {
		return nil, err
	}

	askCtx := ctx
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		askCtx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	result := &AskResult{SessionID: sessionID, QuestionMessageID: questionMessageID}

	resp, err := o.rag.Ask(askCtx, question, scope, o.opts.TopK, history)
	if err != nil {
		reason, notice := classifyAskFailure(err)
		logging.L.Warnf("Ask failed for session %s (%s): %v", sessionID, reason, err)

		answerMessageID, appendErr := o.store.AppendMessage(sessionID, store.RoleAssistant, notice, nil)
		if appendErr != nil {
			return nil, appendErr
		}

		result.Failed = true
		result.FailReason = reason
		result.Answer = notice
		result.AnswerMessageID = answerMessageID
		telemetry.QuestionsTotal.WithLabelValues(reason).Inc()
		o.maybeGenerateTitle(hadSession, sessionID, question)
		return result, nil
	}

	answerMessageID, err := o.store.AppendMessage(sessionID, store.RoleAssistant, resp.Answer, resp.Citations)
	if err != nil {
		return nil, err
	}

	result.Answer = resp.Answer
	result.Citations = resp.Citations
	result.AnswerMessageID = answerMessageID
	telemetry.QuestionsTotal.WithLabelValues("answered").Inc()
	o.maybeGenerateTitle(hadSession, sessionID, question)
	return result, nil
}

// maybeGenerateTitle replaces the time-derived default title of a session
// that was implicitly created for this question.
func (o *QueryOrchestrator) maybeGenerateTitle(hadSession bool, sessionID, question string) {
	if hadSession || o.titler == nil {
		return
	}
	go o.titler.GenerateAndSaveTitle(sessionID, question)
}

func classifyAskFailure(err error) (reason, notice string) {
	switch {
	case errors.Is(err, context.Canceled):
		return FailReasonCancelled, cancelledNotice
	case errors.Is(err, context.DeadlineExceeded):
		return FailReasonTimeout, timeoutNotice
	}

	var remoteErr *ragclient.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Kind == ragclient.RemoteRejected {
		return FailReasonRejected, failureNotice
	}
	return FailReasonUnavailable, failureNotice
}

func historyTurns(messages []store.Message, depth int) []ragclient.HistoryTurn {
	if len(messages) > depth {
		messages = messages[len(messages)-depth:]
	}
	turns := make([]ragclient.HistoryTurn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, ragclient.HistoryTurn{Role: string(msg.Role), Content: msg.Content})
	}
	return turns
}
