package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres spins up a throwaway Postgres container and returns a
// connected pgx session with the steward schema applied.
func startPostgres(t *testing.T) *pgx.Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("steward"),
		tcpostgres.WithUsername("steward"),
		tcpostgres.WithPassword("steward"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = ctr.Terminate(context.Background())
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close(context.Background())
	})

	// Apply the migration group's DDL.
	for _, stmt := range []string{
		`CREATE TABLE steward_actions (
			id                  TEXT PRIMARY KEY,
			tenant_id           TEXT NOT NULL,
			agent_id            TEXT NOT NULL,
			agent_name          TEXT NOT NULL DEFAULT '',
			agent_type          TEXT NOT NULL,
			action_type         TEXT NOT NULL,
			entity_type         TEXT NOT NULL DEFAULT '',
			entity_id           TEXT NOT NULL DEFAULT '',
			reasoning           TEXT NOT NULL DEFAULT '',
			confidence          DOUBLE PRECISION NOT NULL DEFAULT 0,
			impact              TEXT NOT NULL DEFAULT 'low',
			requires_approval   BOOLEAN NOT NULL DEFAULT FALSE,
			status              TEXT NOT NULL DEFAULT 'pending',
			approved_by         TEXT NOT NULL DEFAULT '',
			approved_at         TIMESTAMPTZ,
			executed_at         TIMESTAMPTZ,
			metadata            JSONB NOT NULL DEFAULT '{}',
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE steward_roles (
			id              TEXT PRIMARY KEY,
			tenant_id       TEXT NOT NULL,
			name            TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			permissions     JSONB NOT NULL DEFAULT '[]',
			is_default      BOOLEAN NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(tenant_id, name)
		)`,
		`CREATE TABLE steward_memberships (
			id              TEXT PRIMARY KEY,
			tenant_id       TEXT NOT NULL,
			user_id         TEXT NOT NULL,
			role_name       TEXT NOT NULL,
			granted_by      TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(tenant_id, user_id)
		)`,
	} {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return conn
}

// TestTransitionGuard verifies the compare-and-set contract at the SQL
// level: the guarded UPDATE settles a pending entry exactly once.
func TestTransitionGuard(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	_, err := conn.Exec(ctx, `
		INSERT INTO steward_actions (id, tenant_id, agent_id, agent_type, action_type, metadata)
		VALUES ('act_test1', 'tenant-a', 'agent-1', 'maintenance', 'create_work_order', '{"unit": "12B"}')`)
	if err != nil {
		t.Fatal(err)
	}

	transition := `
		UPDATE steward_actions
		SET status = $1, approved_by = $2, approved_at = $3, metadata = metadata || $4
		WHERE id = $5 AND status = 'pending'`

	now := time.Now().UTC()
	tag, err := conn.Exec(ctx, transition, "rejected", "user-1", now, `{"rejection_reason": "duplicate"}`, "act_test1")
	if err != nil {
		t.Fatal(err)
	}
	if tag.RowsAffected() != 1 {
		t.Fatalf("first transition affected %d rows, want 1", tag.RowsAffected())
	}

	// A second decision on the settled entry must not match.
	tag, err = conn.Exec(ctx, transition, "executed", "user-2", now, `{}`, "act_test1")
	if err != nil {
		t.Fatal(err)
	}
	if tag.RowsAffected() != 0 {
		t.Fatalf("second transition affected %d rows, want 0", tag.RowsAffected())
	}

	// Metadata merge keeps prior keys.
	var unit, reason string
	err = conn.QueryRow(ctx, `
		SELECT metadata->>'unit', metadata->>'rejection_reason'
		FROM steward_actions WHERE id = 'act_test1'`).Scan(&unit, &reason)
	if err != nil {
		t.Fatal(err)
	}
	if unit != "12B" {
		t.Errorf("metadata unit = %q, want 12B", unit)
	}
	if reason != "duplicate" {
		t.Errorf("metadata rejection_reason = %q, want duplicate", reason)
	}
}

// TestRoleNameUnique verifies the constraint the conflict mapping relies on.
func TestRoleNameUnique(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	_, err := conn.Exec(ctx, `
		INSERT INTO steward_roles (id, tenant_id, name) VALUES ('role_1', 'tenant-a', 'leasing_agent')`)
	if err != nil {
		t.Fatal(err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO steward_roles (id, tenant_id, name) VALUES ('role_2', 'tenant-a', 'leasing_agent')`)
	if !isUniqueViolation(err) {
		t.Errorf("duplicate name insert error = %v, want unique violation", err)
	}

	// Same name in another tenant is fine.
	_, err = conn.Exec(ctx, `
		INSERT INTO steward_roles (id, tenant_id, name) VALUES ('role_3', 'tenant-b', 'leasing_agent')`)
	if err != nil {
		t.Errorf("cross-tenant name reuse failed: %v", err)
	}
}

// TestOneMembershipPerUser verifies the single-active-role constraint.
func TestOneMembershipPerUser(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	_, err := conn.Exec(ctx, `
		INSERT INTO steward_memberships (id, tenant_id, user_id, role_name)
		VALUES ('mbr_1', 'tenant-a', 'user-1', 'staff')`)
	if err != nil {
		t.Fatal(err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO steward_memberships (id, tenant_id, user_id, role_name)
		VALUES ('mbr_2', 'tenant-a', 'user-1', 'admin')`)
	if !isUniqueViolation(err) {
		t.Errorf("second membership error = %v, want unique violation", err)
	}
}
