package cli

import (
	"context"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"golang.org/x/time/rate"

	"messagic/config"
	"messagic/ipc"
	"messagic/log"
	"messagic/store"
	"messagic/transport"
)

// Session is a configured, not yet opened channel together with the
// resources backing it.
type Session struct {
	Conn    transport.Conn
	Channel *ipc.Channel
	Journal *store.Journal

	db  *leveldb.DB
	lgr log.Logger
}

func OpenSession(ctx context.Context, cfg *config.Config, homeDir string) (*Session, error) {
	lgr := log.WithModule("session")
	conn, err := transport.Open(ctx, cfg.Transport)
	if err != nil {
		return nil, errors.Wrap(err, "error opening transport")
	}
	s := &Session{
		Conn:    conn,
		Channel: ipc.New(conn, conn),
		lgr:     lgr,
	}
	if err := s.configure(cfg, homeDir); err != nil {
		s.Close()
		return nil, err
	}
	lgr.Info("session ready", "transport", cfg.Transport.Kind, "journal", cfg.Journal.Enabled)
	return s, nil
}

func (s *Session) configure(cfg *config.Config, homeDir string) error {
	if err := s.Channel.SetLimits(cfg.Limits.Wire()); err != nil {
		return errors.Wrap(err, "error setting limits")
	}
	if cfg.Tuning.RecvRateLimit > 0 {
		burst := cfg.Tuning.RecvRateBurst
		if burst < 1 {
			burst = 1
		}
		if err := s.Channel.SetRecvRateLimit(rate.Limit(cfg.Tuning.RecvRateLimit), burst); err != nil {
			return errors.Wrap(err, "error setting receive rate limit")
		}
	}
	if !cfg.Journal.Enabled {
		return nil
	}

	dbPath := cfg.JournalPath(homeDir)
	s.lgr.Info("opening journal", "path", dbPath)
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	s.db = db
	journal, err := store.NewJournal(db)
	if err != nil {
		return err
	}
	s.Journal = journal
	return s.Channel.SetTap(journal)
}

// Close tears the session down: channel first, then transport, then
// journal.
func (s *Session) Close() error {
	if err := s.Channel.Close(); err != nil {
		s.lgr.Warn("error closing channel", "err", err)
	}
	err := s.Conn.Close()
	if s.db != nil {
		if dbErr := s.db.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
	}
	return errors.Wrap(err, "error closing session")
}
