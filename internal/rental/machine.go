package rental

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerrad567/rentwise-core/internal/auth"
	"github.com/nerrad567/rentwise-core/internal/events"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/database"
	"github.com/nerrad567/rentwise-core/internal/property"
)

// PropertyLookup resolves a property and its owner.
type PropertyLookup interface {
	GetByID(ctx context.Context, id int64) (*property.Property, error)
}

// TenantLookup resolves a tenant by username.
type TenantLookup interface {
	GetByUsername(ctx context.Context, username string) (*auth.User, error)
}

// Machine is the rent-request state machine backed by SQLite.
type Machine struct {
	db         *sql.DB
	tenants    TenantLookup
	properties PropertyLookup
	events     events.Sink
	logger     *slog.Logger
	now        func() time.Time
}

// NewMachine creates a Machine. A nil sink discards events and a nil
// logger uses slog.Default.
func NewMachine(db *sql.DB, tenants TenantLookup, properties PropertyLookup, sink events.Sink, logger *slog.Logger) *Machine {
	if sink == nil {
		sink = events.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		db:         db,
		tenants:    tenants,
		properties: properties,
		events:     sink,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateRequest records a pending request from a tenant.
func (m *Machine) CreateRequest(ctx context.Context, req NewRequest) (*RentedProperty, error) {
	tenant, err := m.tenants.GetByUsername(ctx, req.TenantUsername)
	if err != nil {
		return nil, err
	}
	prop, err := m.properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	start := dateOnly(req.StartDate)
	end := dateOnly(req.EndDate)
	if end.Before(start) {
		return nil, ErrInvalidDates
	}

	rp := &RentedProperty{
		TenantID:             tenant.ID,
		PropertyID:           prop.ID,
		StartDate:            start,
		EndDate:              end,
		FinalMonthlyRent:     req.ProposedRent,
		FinalSecurityDeposit: req.ProposedDeposit,
		DurationMonths:       DurationMonths(start, end),
		State:                StatePending,
		CreatedAt:            m.now().UTC().Truncate(time.Second),
	}

	result, err := m.db.ExecContext(ctx,
		`INSERT INTO rented_properties (user_id, property_id, start_date, end_date,
			final_monthly_rent, final_security_deposit, duration, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rp.TenantID, rp.PropertyID, start.Format(DateLayout), end.Format(DateLayout),
		rp.FinalMonthlyRent, rp.FinalSecurityDeposit, rp.DurationMonths, int(rp.State),
		rp.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting rent request: %w", err)
	}
	rp.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading rent request id: %w", err)
	}

	m.logger.Info("rent request created",
		"request_id", rp.ID, "property_id", prop.ID, "tenant", tenant.Username)
	m.events.Emit(ctx, events.Event{
		Type:          events.TypeRentRequestCreated,
		Actor:         tenant.Username,
		Role:          string(tenant.Role()),
		PropertyID:    prop.ID,
		RequestID:     rp.ID,
		OwnerUsername: prop.OwnerUsername,
		TenantID:      tenant.ID,
		At:            m.now(),
	})
	return rp, nil
}

// AcceptRequest sets the agreed terms and marks the request accepted.
// Only the property's owner or an admin may accept.
func (m *Machine) AcceptRequest(ctx context.Context, caller Caller, requestID int64, finalRent, finalDeposit float64) (*RentedProperty, error) {
	var rp *RentedProperty
	var owner string

	err := database.RunInTx(ctx, m.db, func(tx *sql.Tx) error {
		var err error
		rp, owner, err = loadForTransition(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if err := CheckOwnership(caller, owner); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE rented_properties SET final_monthly_rent = ?, final_security_deposit = ?, status = ? WHERE id = ?`,
			finalRent, finalDeposit, int(StateAccepted), requestID)
		if err != nil {
			return fmt.Errorf("accepting rent request %d: %w", requestID, err)
		}
		return nil
	})
	if err != nil {
		m.logTransitionFailure("accept", caller, requestID, err)
		return nil, err
	}

	rp.FinalMonthlyRent = finalRent
	rp.FinalSecurityDeposit = finalDeposit
	rp.State = StateAccepted

	m.logger.Info("rent request accepted", "request_id", requestID, "by", caller.Username)
	m.emitTransition(ctx, events.TypeRentRequestAccepted, caller, rp, owner)
	return rp, nil
}

// RejectRequest deletes a request. Only the property's owner or an admin
// may reject.
func (m *Machine) RejectRequest(ctx context.Context, caller Caller, requestID int64) error {
	var rp *RentedProperty
	var owner string

	err := database.RunInTx(ctx, m.db, func(tx *sql.Tx) error {
		var err error
		rp, owner, err = loadForTransition(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if err := CheckOwnership(caller, owner); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM rented_properties WHERE id = ?`, requestID); err != nil {
			return fmt.Errorf("rejecting rent request %d: %w", requestID, err)
		}
		return nil
	})
	if err != nil {
		m.logTransitionFailure("reject", caller, requestID, err)
		return err
	}

	m.logger.Info("rent request rejected", "request_id", requestID, "by", caller.Username)
	m.emitTransition(ctx, events.TypeRentRequestRejected, caller, rp, owner)
	return nil
}

// GetRequest loads a request by id.
func (m *Machine) GetRequest(ctx context.Context, requestID int64) (*RentedProperty, error) {
	rp, err := scanRented(m.db.QueryRowContext(ctx, "SELECT "+rentedColumns+" FROM rented_properties WHERE id = ?", requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("getting rent request %d: %w", requestID, err)
	}
	return rp, nil
}

// CountPendingForProperty counts pending requests on a property.
func (m *Machine) CountPendingForProperty(ctx context.Context, propertyID int64) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rented_properties WHERE property_id = ? AND status = ?`,
		propertyID, int(StatePending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting rent requests: %w", err)
	}
	return n, nil
}

// ListPendingForProperty returns pending requests on a property, oldest first.
func (m *Machine) ListPendingForProperty(ctx context.Context, propertyID int64) ([]RentRequestView, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.property_id, p.address, u.username, u.email,
			r.start_date, r.end_date, r.final_monthly_rent, r.final_security_deposit, r.duration
		 FROM rented_properties r
		 JOIN properties p ON p.id = r.property_id
		 JOIN users u ON u.id = r.user_id
		 WHERE r.property_id = ? AND r.status = ?
		 ORDER BY r.id`,
		propertyID, int(StatePending))
	if err != nil {
		return nil, fmt.Errorf("listing rent requests: %w", err)
	}
	defer rows.Close()

	out := []RentRequestView{}
	for rows.Next() {
		var v RentRequestView
		if err := rows.Scan(&v.RequestID, &v.UserID, &v.PropertyID, &v.PropertyAddress,
			&v.UserName, &v.UserEmail, &v.StartDate, &v.EndDate,
			&v.FinalMonthlyRent, &v.FinalSecurityDeposit, &v.Duration); err != nil {
			return nil, fmt.Errorf("scanning rent request: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rent requests: %w", err)
	}
	return out, nil
}

// ListForTenant returns every request and lease held by a tenant.
func (m *Machine) ListForTenant(ctx context.Context, tenantID int64) ([]RentedView, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT "+rentedColumns+" FROM rented_properties WHERE user_id = ? ORDER BY id", tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing rented properties: %w", err)
	}
	defer rows.Close()

	out := []RentedView{}
	for rows.Next() {
		rp, err := scanRented(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rented property: %w", err)
		}
		out = append(out, rp.View())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rented properties: %w", err)
	}
	return out, nil
}

const rentedColumns = `id, user_id, property_id, start_date, end_date,
	final_monthly_rent, final_security_deposit, duration, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRented(s scanner) (*RentedProperty, error) {
	var rp RentedProperty
	var start, end, createdAt string
	var state int
	if err := s.Scan(&rp.ID, &rp.TenantID, &rp.PropertyID, &start, &end,
		&rp.FinalMonthlyRent, &rp.FinalSecurityDeposit, &rp.DurationMonths, &state, &createdAt); err != nil {
		return nil, err
	}
	rp.State = State(state)

	var err error
	if rp.StartDate, err = time.Parse(DateLayout, start); err != nil {
		return nil, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	if rp.EndDate, err = time.Parse(DateLayout, end); err != nil {
		return nil, fmt.Errorf("parsing end date %q: %w", end, err)
	}
	rp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &rp, nil
}

// loadForTransition reads a request and its property owner's username
// inside tx.
func loadForTransition(ctx context.Context, tx *sql.Tx, requestID int64) (*RentedProperty, string, error) {
	var owner string
	row := tx.QueryRowContext(ctx,
		`SELECT r.id, r.user_id, r.property_id, r.start_date, r.end_date,
			r.final_monthly_rent, r.final_security_deposit, r.duration, r.status, r.created_at,
			u.username
		 FROM rented_properties r
		 JOIN properties p ON p.id = r.property_id
		 JOIN users u ON u.id = p.owner_id
		 WHERE r.id = ?`, requestID)

	rp, err := scanRented(ownerScanner{row: row, owner: &owner})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrRequestNotFound
		}
		return nil, "", fmt.Errorf("loading rent request %d: %w", requestID, err)
	}
	return rp, owner, nil
}

// ownerScanner appends the owner column to a rented_properties scan.
type ownerScanner struct {
	row   *sql.Row
	owner *string
}

func (o ownerScanner) Scan(dest ...any) error {
	return o.row.Scan(append(dest, o.owner)...)
}

func (m *Machine) emitTransition(ctx context.Context, eventType string, caller Caller, rp *RentedProperty, owner string) {
	m.events.Emit(ctx, events.Event{
		Type:          eventType,
		Actor:         caller.Username,
		Role:          string(caller.Role),
		PropertyID:    rp.PropertyID,
		RequestID:     rp.ID,
		OwnerUsername: owner,
		TenantID:      rp.TenantID,
		At:            m.now(),
	})
}

func (m *Machine) logTransitionFailure(op string, caller Caller, requestID int64, err error) {
	if errors.Is(err, auth.ErrForbidden) {
		m.logger.Warn("rent request transition forbidden",
			"op", op, "request_id", requestID, "by", caller.Username, "role", caller.Role)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
