package database

import (
	"context"
	"fmt"

	"shareit/internal/models"
)

const requestColumns = `id, description, requester_id, created`

func (db *DB) CreateItemRequest(ctx context.Context, request *models.ItemRequest) error {
	query := `INSERT INTO item_requests (description, requester_id, created) VALUES (?, ?, ?)`
	request.Created = request.Created.UTC()
	result, err := db.ExecContext(ctx, query, request.Description, request.RequesterID, request.Created)
	if err != nil {
		return mapError(err, "create item request")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	request.ID = id
	return nil
}

func (db *DB) GetItemRequest(ctx context.Context, id int64) (*models.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM item_requests WHERE id = ?`
	var r models.ItemRequest
	err := db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Description, &r.RequesterID, &r.Created)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("item request %d", id))
	}
	return &r, nil
}

// GetItemRequestsByRequester lists a user's own requests, newest first.
func (db *DB) GetItemRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM item_requests
              WHERE requester_id = ? ORDER BY created DESC, id DESC`
	return db.queryItemRequests(ctx, query, requesterID)
}

// GetOtherItemRequests pages through the requests of everyone except userID, newest first.
func (db *DB) GetOtherItemRequests(ctx context.Context, userID int64, limit, offset int) ([]*models.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM item_requests
              WHERE requester_id <> ? ORDER BY created DESC, id DESC LIMIT ? OFFSET ?`
	return db.queryItemRequests(ctx, query, userID, limit, offset)
}

func (db *DB) DeleteItemRequest(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM item_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item request: %w", err)
	}
	return checkAffected(result, fmt.Sprintf("item request %d", id))
}

// GetItemsByRequestIDs loads the items created in answer to any of the requests.
func (db *DB) GetItemsByRequestIDs(ctx context.Context, requestIDs []int64) ([]*models.Item, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(requestIDs)
	query := `SELECT ` + itemColumns + ` FROM items
              WHERE request_id IN (` + placeholders + `) ORDER BY id ASC`
	return db.queryItems(ctx, "get items by request", query, args...)
}

func (db *DB) queryItemRequests(ctx context.Context, query string, args ...interface{}) ([]*models.ItemRequest, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get item requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.ItemRequest
	for rows.Next() {
		r := &models.ItemRequest{}
		if err := rows.Scan(&r.ID, &r.Description, &r.RequesterID, &r.Created); err != nil {
			return nil, fmt.Errorf("failed to scan item request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}
