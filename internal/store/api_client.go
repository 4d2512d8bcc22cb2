package store

import (
	"context"
	"errors"
	"fmt"

	"cashflow/internal/database"
	"cashflow/internal/model"

	"github.com/jackc/pgx/v5"
)

func CreateAPIClient(ctx context.Context, db database.DB, c *model.APIClient) error {
	row := db.QueryRow(ctx,
		`INSERT INTO api_clients (client_id, secret_hash, name, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		c.ClientID,
		c.SecretHash,
		c.Name,
		c.OwnerID,
	)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("CreateAPIClient: %w", err)
	}
	return nil
}

func GetAPIClientByClientID(ctx context.Context, db database.DB, clientID string) (*model.APIClient, error) {
	row := db.QueryRow(ctx,
		`SELECT id, client_id, secret_hash, name, owner_id, created_at, updated_at
		 FROM api_clients WHERE client_id = $1`,
		clientID,
	)
	c := &model.APIClient{}
	if err := row.Scan(&c.ID, &c.ClientID, &c.SecretHash, &c.Name, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
		}
		return nil, fmt.Errorf("GetAPIClientByClientID: %w", err)
	}
	return c, nil
}

func ListAPIClients(ctx context.Context, db database.DB, ownerID int) ([]model.APIClient, error) {
	rows, err := db.Query(ctx,
		`SELECT id, client_id, secret_hash, name, owner_id, created_at, updated_at
		 FROM api_clients WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListAPIClients: %w", err)
	}
	defer rows.Close()

	list := []model.APIClient{}
	for rows.Next() {
		var c model.APIClient
		if err := rows.Scan(&c.ID, &c.ClientID, &c.SecretHash, &c.Name, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListAPIClients: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAPIClients: %w", err)
	}
	return list, nil
}

// DeleteAPIClient 只刪除屬於 ownerID 的 client
func DeleteAPIClient(ctx context.Context, db database.DB, ownerID int, clientID string) error {
	tag, err := db.Exec(ctx, `DELETE FROM api_clients WHERE client_id = $1 AND owner_id = $2`, clientID, ownerID)
	if err != nil {
		return fmt.Errorf("DeleteAPIClient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteAPIClient: %w", ErrNotFound)
	}
	return nil
}
