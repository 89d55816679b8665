package orchestrate

import (
	"context"

	"github.com/bcomnes/dbmig/pkg/migrations"
)

// Runner executes migrations against one connection or transaction.
// *migrations.Migrator implements it.
type Runner interface {
	ApplyPending(ctx context.Context, dir string) ([]string, error)
	RevertLatest(ctx context.Context, dir string) (string, error)
	ApplyByVersion(ctx context.Context, dir, version string) error
	ListMarked(ctx context.Context, dir string) ([]migrations.Marked, error)
	AnyPending(ctx context.Context, dir string) (bool, error)
}

// Session is an open database session.
type Session interface {
	Backend() migrations.Backend
	// Runner runs each call outside of any caller-managed transaction.
	Runner() Runner
	// InTransaction runs fn in one transaction, committed only when fn returns nil.
	InTransaction(ctx context.Context, fn func(Runner) error) error
}

// Redo reverts the latest applied migration and applies it again, returning
// its version. Backends with transactional DDL run both steps in a single
// transaction. Elsewhere a failed reapply leaves the migration reverted.
func Redo(ctx context.Context, s Session, dir string) (string, error) {
	var version string
	redo := func(r Runner) error {
		v, err := r.RevertLatest(ctx, dir)
		if err != nil {
			return err
		}
		version = v
		return r.ApplyByVersion(ctx, dir, v)
	}

	var err error
	if s.Backend().SupportsTransactionalDDL() {
		err = s.InTransaction(ctx, redo)
	} else {
		err = redo(s.Runner())
	}
	if err != nil {
		return "", err
	}
	return version, nil
}

// NewSession adapts an open connection to a Session.
func NewSession(conn *migrations.Conn) (Session, error) {
	m, err := conn.Migrator()
	if err != nil {
		return nil, err
	}
	return &connSession{conn: conn, runner: m}, nil
}

type connSession struct {
	conn   *migrations.Conn
	runner *migrations.Migrator
}

func (s *connSession) Backend() migrations.Backend { return s.conn.Backend }

func (s *connSession) Runner() Runner { return s.runner }

func (s *connSession) InTransaction(ctx context.Context, fn func(Runner) error) error {
	return s.conn.Transaction(ctx, func(m *migrations.Migrator) error {
		return fn(m)
	})
}
