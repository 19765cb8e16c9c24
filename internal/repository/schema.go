package repository

// Schema definitions for the Heron database.
// Compatible with both SQLite and PostgreSQL.
// Monetary amounts are stored as TEXT to keep decimal precision exact.

const schemaPolicyRequests = `
CREATE TABLE IF NOT EXISTS policy_requests (
    id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    product_id TEXT NOT NULL,
    category TEXT NOT NULL,
    sales_channel TEXT NOT NULL,
    payment_method TEXT NOT NULL,
    status TEXT NOT NULL,
    premium_amount TEXT NOT NULL,
    insured_amount TEXT NOT NULL,
    coverages TEXT NOT NULL,
    assistances TEXT,
    risk_analysis TEXT,
    created_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    version INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_policy_requests_customer ON policy_requests(customer_id);
CREATE INDEX IF NOT EXISTS idx_policy_requests_status ON policy_requests(status);
CREATE INDEX IF NOT EXISTS idx_policy_requests_created ON policy_requests(created_at);
`

const schemaStatusHistory = `
CREATE TABLE IF NOT EXISTS status_history (
    policy_request_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    changed_at TIMESTAMP NOT NULL,
    reason TEXT,
    PRIMARY KEY (policy_request_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_status_history_request ON status_history(policy_request_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaPolicyRequests,
		schemaStatusHistory,
	}
}
