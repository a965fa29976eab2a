// Package journal records every booking submission attempt in Postgres.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/db"
)

type Attempt struct {
	ID          int64
	SessionID   string
	ServiceID   string
	Kind        booking.ServiceKind
	Request     booking.Request
	Success     bool
	ErrorKind   booking.ErrorKind
	Reason      string
	Reference   string
	TotalPrice  float64
	Duration    time.Duration
	AttemptedAt time.Time
}

type Repo struct{ db db.Querier }

func NewRepo(d db.Querier) *Repo { return &Repo{db: d} }

func (r *Repo) Record(ctx context.Context, a Attempt) (int64, error) {
	req, err := json.Marshal(a.Request)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	var id int64
	err = r.db.QueryRow(ctx, `
INSERT INTO submission_attempts(session_id,service_id,service_kind,request,success,error_kind,reason,reference,total_price,duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id`,
		a.SessionID, a.ServiceID, string(a.Kind), req, a.Success,
		nullable(string(a.ErrorKind)), nullable(a.Reason), nullable(a.Reference), nullableAmount(a.Success, a.TotalPrice),
		a.Duration.Milliseconds(),
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

// Recent returns the latest attempts, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
SELECT id,session_id,service_id,service_kind,request,success,error_kind,reason,reference,total_price,duration_ms,attempted_at
FROM submission_attempts
ORDER BY attempted_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a                    Attempt
			kind                 string
			req                  []byte
			errKind, reason, ref *string
			total                *float64
			durationMS           int64
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &a.ServiceID, &kind, &req, &a.Success,
			&errKind, &reason, &ref, &total, &durationMS, &a.AttemptedAt); err != nil {
			return nil, err
		}
		a.Kind = booking.ServiceKind(kind)
		if err := json.Unmarshal(req, &a.Request); err != nil {
			return nil, fmt.Errorf("attempt %d: %w", a.ID, err)
		}
		a.ErrorKind = booking.ErrorKind(deref(errKind))
		a.Reason = deref(reason)
		a.Reference = deref(ref)
		if total != nil {
			a.TotalPrice = *total
		}
		a.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, a)
	}
	return out, rows.Err()
}

// Submitter matches form.Submitter.
type Submitter interface {
	Submit(ctx context.Context, token string, req booking.Request) (booking.Confirmation, error)
}

// Recorder journals each submission that passes through it. A journal write that
// fails is logged and never changes the submission's outcome.
type Recorder struct {
	next      Submitter
	repo      *Repo
	sessionID string
	log       logrus.FieldLogger
}

func NewRecorder(next Submitter, repo *Repo, sessionID string, log logrus.FieldLogger) *Recorder {
	return &Recorder{next: next, repo: repo, sessionID: sessionID, log: log}
}

func (r *Recorder) Submit(ctx context.Context, token string, req booking.Request) (booking.Confirmation, error) {
	start := time.Now()
	conf, err := r.next.Submit(ctx, token, req)

	a := Attempt{
		SessionID: r.sessionID,
		ServiceID: string(req.ServiceID),
		Kind:      req.ServiceKind,
		Request:   req,
		Success:   err == nil,
		Duration:  time.Since(start),
	}
	if err != nil {
		var f *booking.Failure
		if errors.As(err, &f) {
			a.ErrorKind = f.Kind
		}
		a.Reason = err.Error()
	} else {
		a.Reference = conf.Reference
		a.TotalPrice = conf.TotalPrice
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if id, jerr := r.repo.Record(wctx, a); jerr != nil {
		r.log.WithError(jerr).WithField("service_id", a.ServiceID).Warn("could not journal submission")
	} else {
		r.log.WithFields(logrus.Fields{"attempt": id, "success": a.Success}).Debug("submission journaled")
	}
	return conf, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableAmount(ok bool, v float64) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
