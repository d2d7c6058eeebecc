// Package ussd implements the SACCO USSD menu: the navigation graph, the
// per-session state machine that walks it and the HTTP callback handler.
package ussd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/wochuna/Sacco/internal/identity"
	"github.com/wochuna/Sacco/internal/ledger"
	"github.com/wochuna/Sacco/internal/logging"
	"github.com/wochuna/Sacco/internal/metrics"
	"github.com/wochuna/Sacco/internal/session"
	"github.com/wochuna/Sacco/internal/validation"
)

const defaultLockTimeout = 5 * time.Second

const (
	msgInvalidPhone    = "Error: Invalid phone number format."
	msgMissingSession  = "Error: Missing session ID."
	msgInvalidChoice   = "Invalid choice."
	msgSessionEnded    = "Session has ended. Please dial again."
	msgSessionExpired  = "Session expired. Please dial again."
	msgTryAgainLater   = "We could not complete your request. Please try again later."
	msgTooManyRequests = "Too many requests. Please try again later."
	msgInvalidPIN      = "Invalid PIN. Please try again."
	msgInvalidAmount   = "Invalid amount. Please try again."
)

// Members is the identity surface used by the menu.
type Members interface {
	FindByPhone(ctx context.Context, phone string) (identity.User, error)
	Register(ctx context.Context, reg identity.Registration) (identity.User, error)
	Authenticate(ctx context.Context, phone, pin string) (identity.User, error)
	ChangePIN(ctx context.Context, user identity.User, newPIN string) error
}

// Ledger is the money-moving surface used by the menu.
type Ledger interface {
	Withdraw(ctx context.Context, req ledger.WithdrawRequest) (ledger.Balances, error)
	Deposit(ctx context.Context, req ledger.DepositRequest) (ledger.Transaction, error)
	RecentTransactions(ctx context.Context, phone string, limit int) ([]ledger.Transaction, error)
}

// Request is one gateway callback.
type Request struct {
	SessionID   string
	ServiceCode string
	PhoneNumber string
	Text        string
}

// Machine turns callbacks into responses. It is safe for concurrent use;
// callbacks for the same session are serialized through the session store
// lock.
type Machine struct {
	graph       map[string]node
	sessions    session.Store
	members     Members
	ledger      Ledger
	hasher      identity.Hasher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	lockTimeout time.Duration
}

// NewMachine wires a state machine. The hasher protects the pending new PIN
// held between the two PIN change prompts.
func NewMachine(sessions session.Store, members Members, ledger Ledger, hasher identity.Hasher, m *metrics.Metrics, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = logging.Discard()
	}
	if hasher == nil {
		hasher = identity.NewBcryptHasher(0)
	}
	return &Machine{
		graph:       buildGraph(),
		sessions:    sessions,
		members:     members,
		ledger:      ledger,
		hasher:      hasher,
		metrics:     m,
		logger:      logger,
		lockTimeout: defaultLockTimeout,
	}
}

// Handle processes one callback.
func (m *Machine) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	resp := m.handle(ctx, req)
	m.metrics.ObserveCallback(responseLabel(resp), time.Since(start))
	return resp
}

func responseLabel(r Response) string {
	switch {
	case r.Status >= 400:
		return "error"
	case r.Continue:
		return "con"
	default:
		return "end"
	}
}

func (m *Machine) handle(ctx context.Context, req Request) Response {
	phone := validation.NormalizePhoneNumber(strings.TrimSpace(req.PhoneNumber))
	if !validation.PhoneNumber(phone) {
		m.logger.Warn("rejected callback: unusable phone number", slog.String("phone", logging.Mask(req.PhoneNumber)))
		return clientError(msgInvalidPhone)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return clientError(msgMissingSession)
	}

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()
	unlock, err := m.sessions.Lock(lockCtx, sessionID)
	if err != nil {
		m.logger.Error("session lock failed", slog.String("session_id", sessionID), slog.Any("error", err))
		return end(msgTryAgainLater)
	}
	defer unlock()

	sess, found, err := m.sessions.Load(ctx, sessionID)
	if err != nil {
		m.logger.Error("session load failed", slog.String("session_id", sessionID), slog.Any("error", err))
		return end(msgTryAgainLater)
	}
	if found && sess.Phone != phone {
		m.logger.Warn("rejected callback: session belongs to another caller",
			slog.String("session_id", sessionID),
			logging.Phone(phone),
		)
		return end(msgSessionEnded)
	}

	text := req.Text
	var resp Response
	switch {
	case text == "":
		if sess == nil {
			sess = session.New(sessionID, phone, nodeMain)
		}
		sess.Reset(nodeMain)
		resp = con(m.graph[nodeMain].prompt)

	case found && text == sess.LastText && sess.LastResponse != "":
		m.metrics.Replayed()
		m.logger.Info("replayed callback", slog.String("session_id", sessionID), logging.Phone(phone))
		return replayed(sess.LastResponse)

	case found && sess.Closed:
		return end(msgSessionEnded)

	default:
		tokens := strings.Split(text, separator)
		last := tokens[len(tokens)-1]
		if !found {
			sess = session.New(sessionID, phone, nodeMain)
			if len(tokens) > 1 && !m.recover(ctx, sess, tokens[:len(tokens)-1]) {
				resp = end(msgSessionExpired)
				break
			}
			if m.commits(sess, last) {
				m.logger.Warn("refused to recover into a committing step",
					slog.String("session_id", sessionID),
					slog.String("node", sess.Node),
				)
				resp = end(msgSessionExpired)
				break
			}
		}
		if m.commits(sess, last) {
			if err := m.tombstone(ctx, sess, text); err != nil {
				m.logger.Error("session save failed before commit", slog.String("session_id", sessionID), slog.Any("error", err))
				return end(msgTryAgainLater)
			}
		}
		resp = m.step(ctx, sess, last)
	}

	if !resp.Continue {
		sess.Close()
	}
	sess.LastText = text
	sess.LastResponse = resp.String()
	if err := m.sessions.Save(ctx, sess); err != nil {
		m.metrics.SessionSaveFailed()
		m.logger.Error("session save failed", slog.String("session_id", sessionID), slog.Any("error", err))
	}
	return resp
}

// commits reports whether stepping token at the current node runs an action
// that changes balances or credentials.
func (m *Machine) commits(sess *session.Session, token string) bool {
	return m.graph[sess.Node].final && token != tokenBack
}

// tombstone persists the session as already ended for text before a
// committing step runs. If the save after the step is lost, a retry of the
// same callback is answered from this record instead of repeating the step.
func (m *Machine) tombstone(ctx context.Context, sess *session.Session, text string) error {
	marker := *sess
	marker.Closed = true
	marker.LastText = text
	marker.LastResponse = end(msgSessionEnded).String()
	return m.sessions.Save(ctx, &marker)
}

// replayed rebuilds a response from its cached rendering.
func replayed(rendered string) Response {
	if msg, ok := strings.CutPrefix(rendered, "CON "); ok {
		return con(msg)
	}
	return end(strings.TrimPrefix(rendered, "END "))
}

// recover rebuilds a lost session by walking every token but the last from
// the root. It fails when the walk would run a committing step or end the
// conversation.
func (m *Machine) recover(ctx context.Context, sess *session.Session, tokens []string) bool {
	m.logger.Info("recovering session", slog.String("session_id", sess.ID), slog.Int("tokens", len(tokens)))
	for _, token := range tokens {
		if n, ok := m.graph[sess.Node]; ok && n.final && token != tokenBack {
			return false
		}
		if resp := m.step(ctx, sess, token); !resp.Continue {
			return false
		}
	}
	return true
}

// step applies one token at the current node.
func (m *Machine) step(ctx context.Context, sess *session.Session, token string) Response {
	current, ok := m.graph[sess.Node]
	if !ok {
		return m.invalidChoice(sess)
	}

	if token == tokenBack {
		if current.parent == "" {
			return m.invalidChoice(sess)
		}
		return m.back(sess, current.parent)
	}

	if current.input != nil {
		return current.input(ctx, m, sess, token)
	}

	e, ok := current.options[token]
	if !ok {
		return m.invalidChoice(sess)
	}
	for k, v := range e.set {
		sess.Set(k, v)
	}
	return m.enter(sess, e.to)
}

// enter moves forward to target and renders it.
func (m *Machine) enter(sess *session.Session, target string) Response {
	sess.Push(sess.Node)
	sess.Node = target
	n := m.graph[target]
	if n.terminal {
		return end(n.prompt)
	}
	return con(n.prompt)
}

// back returns to parent without recording history. Returning to the main
// menu logs the caller out.
func (m *Machine) back(sess *session.Session, parent string) Response {
	if parent == nodeMain {
		sess.Reset(nodeMain)
		return con(m.graph[nodeMain].prompt)
	}
	if !sess.Unwind(parent) {
		sess.Stack = nil
	}
	sess.Node = parent
	return con(m.graph[parent].prompt)
}

// invalidChoice falls back to the caller's root menu.
func (m *Machine) invalidChoice(sess *session.Session) Response {
	root := nodeMain
	if sess.LoggedIn {
		root = nodeLoggedIn
	}
	if !sess.Unwind(root) {
		sess.Stack = nil
	}
	if root == nodeLoggedIn && len(sess.Stack) == 0 {
		sess.Push(nodeMain)
	}
	sess.Node = root
	return con(msgInvalidChoice + "\n" + m.graph[root].prompt)
}

// RateLimited is the reply sent when a caller exceeds the callback budget.
func RateLimited() Response {
	return end(msgTooManyRequests)
}
