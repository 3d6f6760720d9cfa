// Package firebase reads and writes the shop's Firebase Realtime Database
// through the Admin SDK.
package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"github.com/matthieukhl/bakehouse/internal/config"
	"github.com/matthieukhl/bakehouse/internal/models"
	"github.com/matthieukhl/bakehouse/internal/types"
)

// backend is the slice of the Admin SDK the store needs.
type backend interface {
	orderedByKey(ctx context.Context, collection, startAt string, limit int) ([]db.QueryNode, error)
	get(ctx context.Context, path string, v any) error
	getShallow(ctx context.Context, path string, v any) error
	update(ctx context.Context, updates map[string]any) error
}

type rtdb struct {
	client *db.Client
}

func (r rtdb) orderedByKey(ctx context.Context, collection, startAt string, limit int) ([]db.QueryNode, error) {
	q := r.client.NewRef(collection).OrderByKey()
	if startAt != "" {
		q = q.StartAt(startAt)
	}
	return q.LimitToFirst(limit).GetOrdered(ctx)
}

func (r rtdb) get(ctx context.Context, path string, v any) error {
	return r.client.NewRef(path).Get(ctx, v)
}

func (r rtdb) getShallow(ctx context.Context, path string, v any) error {
	return r.client.NewRef(path).GetShallow(ctx, v)
}

func (r rtdb) update(ctx context.Context, updates map[string]any) error {
	return r.client.NewRef("/").Update(ctx, updates)
}

type Store struct {
	b backend
}

// Open initializes the Admin SDK from a service account key file or from the
// inline FIREBASE_* credentials.
func Open(ctx context.Context, cfg config.FirebaseConfig) (*Store, error) {
	var opt option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		if cfg.DatabaseURL == "" && cfg.ProjectID == "" {
			projectID, err := projectIDFromFile(cfg.CredentialsFile)
			if err != nil {
				return nil, err
			}
			cfg.ProjectID = projectID
		}
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	case cfg.HasInlineCredentials():
		creds, err := credentialsJSON(cfg)
		if err != nil {
			return nil, err
		}
		opt = option.WithCredentialsJSON(creds)
	default:
		return nil, fmt.Errorf("firebase credentials not found")
	}

	dbURL := cfg.ResolveDatabaseURL()
	if dbURL == "" {
		return nil, fmt.Errorf("firebase database URL could not be determined")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: dbURL, ProjectID: cfg.ProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}

	return &Store{b: rtdb{client: client}}, nil
}

// FetchPage queries with StartAt, which is inclusive, so it asks for one
// extra node and drops the cursor when it comes back.
func (s *Store) FetchPage(ctx context.Context, collection, afterKey string, limit int) ([]models.Record, error) {
	want := limit
	if afterKey != "" {
		want++
	}

	nodes, err := s.b.orderedByKey(ctx, collection, afterKey, want)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	records := make([]models.Record, 0, len(nodes))
	for _, node := range nodes {
		if afterKey != "" && node.Key() == afterKey {
			continue
		}
		if len(records) == limit {
			break
		}

		var value any
		if err := node.Unmarshal(&value); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, node.Key(), err)
		}
		doc, _ := value.(map[string]any)
		records = append(records, models.Record{Key: node.Key(), Data: doc})
	}

	return records, nil
}

func (s *Store) ReadAll(ctx context.Context, collection string) (map[string]map[string]any, error) {
	var value any
	if err := s.b.get(ctx, collection, &value); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}

	out := make(map[string]map[string]any)
	switch children := value.(type) {
	case map[string]any:
		for key, child := range children {
			if doc, ok := child.(map[string]any); ok {
				out[key] = doc
			}
		}
	case []any:
		// The REST API returns collections with dense integer keys as arrays.
		for i, child := range children {
			if doc, ok := child.(map[string]any); ok {
				out[strconv.Itoa(i)] = doc
			}
		}
	}

	return out, nil
}

// WriteBatch sends every path in a single multi-location update, which the
// database applies atomically.
func (s *Store) WriteBatch(ctx context.Context, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	payload := make(map[string]any, len(updates))
	for p, v := range updates {
		path, err := types.SplitPath(p)
		if err != nil {
			return err
		}
		payload[path.String()] = v
	}

	if err := s.b.update(ctx, payload); err != nil {
		return fmt.Errorf("failed to apply %d updates: %w", len(payload), err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	var top map[string]any
	if err := s.b.getShallow(ctx, "/", &top); err != nil {
		return fmt.Errorf("firebase unreachable: %w", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

func credentialsJSON(cfg config.FirebaseConfig) ([]byte, error) {
	creds := map[string]string{
		"type":         "service_account",
		"project_id":   cfg.ProjectID,
		"client_email": cfg.ClientEmail,
		// Keys pasted into env files usually carry literal \n sequences.
		"private_key": strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n"),
		"token_uri":   "https://oauth2.googleapis.com/token",
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}
	return data, nil
}

func projectIDFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	var key struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return key.ProjectID, nil
}

var _ types.Store = (*Store)(nil)
