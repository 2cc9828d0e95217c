//go:build e2e

// Package e2e contains end-to-end integration tests using a real DynamoDB table.
// Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/lattice/aggregate"
	"github.com/jacentio/lattice/cache"
	"github.com/jacentio/lattice/entry"
	"github.com/jacentio/lattice/prefs"
	"github.com/jacentio/lattice/store"
)

// Test configuration
const (
	awsProfile = "jacent-alpha-cp"

	// Table name - unique per test run to avoid conflicts
	tablePrefix = "lattice-e2e-test"
)

var (
	testID    string
	testTable string

	ddbClient *dynamodb.Client
	testStore *store.Store
)

// newOwner returns a fresh owner id so tests sharing the table stay isolated.
func newOwner() string {
	return "e2e-owner-" + uuid.New().String()
}

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	// Generate unique test ID
	testID = uuid.New().String()[:8]
	testTable = fmt.Sprintf("%s-%s", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Table: %s\n", testTable)

	// Initialize AWS client (uses region from profile config)
	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(awsProfile),
	)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	ddbClient = dynamodb.NewFromConfig(cfg)

	// Create table
	if err := createTable(ctx); err != nil {
		fmt.Printf("Failed to create table: %v\n", err)
		os.Exit(1)
	}

	// Initialize store
	testStore = store.New(ddbClient, store.Config{
		TableName: testTable,
	})

	// Run tests
	code := m.Run()

	// Cleanup table
	if err := deleteTable(ctx); err != nil {
		fmt.Printf("Failed to delete table: %v\n", err)
	}

	os.Exit(code)
}

func createTable(ctx context.Context) error {
	fmt.Println("Creating test table...")

	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(testTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", testTable, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(testTable),
	}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", testTable, err)
	}

	fmt.Println("Table created and active")
	return nil
}

func deleteTable(ctx context.Context) error {
	fmt.Println("Deleting test table...")

	_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(testTable),
	})
	if err != nil {
		return fmt.Errorf("delete table %s: %w", testTable, err)
	}

	fmt.Println("Table deleted")
	return nil
}

// --- Round-Trip Tests ---

func TestUpsertAndGetAll_RoundTrip(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()

	writes := []entry.Entry{
		{OwnerID: owner, Category: entry.Toggleable(), Key: "autoplay", Value: entry.BoolValue(true)},
		{OwnerID: owner, Category: entry.Preference(), Key: "theme", Value: entry.StringValue("dark")},
		{OwnerID: owner, Category: entry.Favorites("artists"), Key: entry.FavoritesKey, Value: entry.SetValue("b", "a")},
		{OwnerID: owner, Category: entry.Sortable("queue"), Position: 1000, Key: "track-1", Value: entry.StringValue("first")},
		{OwnerID: owner, Category: entry.Sortable("queue"), Position: 2000, Key: "track-2", Value: entry.StringValue("second")},
	}
	for _, e := range writes {
		version, err := testStore.UpsertUnconditional(ctx, e)
		if err != nil {
			t.Fatalf("upsert %s/%s: %v", e.Category, e.Key, err)
		}
		if version != 1 {
			t.Errorf("expected version 1 for %s/%s, got %d", e.Category, e.Key, version)
		}
	}

	entries, err := testStore.GetAll(ctx, owner)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(entries) != len(writes) {
		t.Fatalf("expected %d entries, got %d", len(writes), len(entries))
	}

	for _, e := range entries {
		switch {
		case e.Category == entry.Toggleable() && e.Key == "autoplay":
			if v, ok := e.Value.Bool(); !ok || !v {
				t.Errorf("expected autoplay true, got %v (ok=%v)", v, ok)
			}
		case e.Category == entry.Preference() && e.Key == "theme":
			if v, ok := e.Value.String(); !ok || v != "dark" {
				t.Errorf("expected theme 'dark', got %q (ok=%v)", v, ok)
			}
		case e.Category == entry.Favorites("artists"):
			members, ok := e.Value.StringSet()
			if !ok || !slices.Equal(members, []string{"a", "b"}) {
				t.Errorf("expected members [a b], got %v (ok=%v)", members, ok)
			}
		}
		if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
			t.Errorf("expected timestamps on %s/%s", e.Category, e.Key)
		}
	}
}

func TestUpsertConditional_OptimisticLockFailure(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()

	e := entry.Entry{OwnerID: owner, Category: entry.Preference(), Key: "theme", Value: entry.StringValue("dark")}

	// Create requires the entry not to exist yet.
	version, err := testStore.UpsertConditional(ctx, e, store.VersionNotExists)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	// First conditional update succeeds.
	e.Value = entry.StringValue("light")
	if _, err := testStore.UpsertConditional(ctx, e, 1); err != nil {
		t.Fatalf("first conditional update: %v", err)
	}

	// Second update with the stale version fails.
	e.Value = entry.StringValue("solarized")
	_, err = testStore.UpsertConditional(ctx, e, 1)
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}

	entries, err := testStore.GetCategory(ctx, owner, entry.Preference())
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if v, _ := entries[0].Value.String(); v != "light" {
		t.Errorf("expected losing write to change nothing, got %q", v)
	}
}

func TestGetCategory_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()

	for _, domain := range []string{"queue", "queue2"} {
		e := entry.Entry{OwnerID: owner, Category: entry.Sortable(domain), Position: 1000, Key: "item", Value: entry.StringValue(domain)}
		if _, err := testStore.UpsertUnconditional(ctx, e); err != nil {
			t.Fatalf("upsert %s: %v", domain, err)
		}
	}

	entries, err := testStore.GetCategory(ctx, owner, entry.Sortable("queue"))
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry in queue, got %d", len(entries))
	}
	if v, _ := entries[0].Value.String(); v != "queue" {
		t.Errorf("expected the queue item, got %q", v)
	}
}

func TestEmptyStringSet_Persists(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()

	e := entry.Entry{OwnerID: owner, Category: entry.Favorites("artists"), Key: entry.FavoritesKey, Value: entry.SetValue()}
	if _, err := testStore.UpsertUnconditional(ctx, e); err != nil {
		t.Fatalf("upsert empty set: %v", err)
	}

	entries, err := testStore.GetCategory(ctx, owner, entry.Favorites("artists"))
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the empty-set entry, got %d entries", len(entries))
	}
	members, ok := entries[0].Value.StringSet()
	if !ok || len(members) != 0 {
		t.Errorf("expected empty set, got %v (ok=%v)", members, ok)
	}
}

// --- Category Replace Tests ---

func TestReplaceCategory_SwapAndDeparture(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()
	cat := entry.Sortable("queue")

	seed := []entry.Entry{
		{OwnerID: owner, Category: cat, Position: 1000, Key: "a", Value: entry.StringValue("va")},
		{OwnerID: owner, Category: cat, Position: 2000, Key: "b", Value: entry.StringValue("vb")},
		{OwnerID: owner, Category: cat, Position: 3000, Key: "c", Value: entry.StringValue("vc")},
	}
	if err := testStore.ReplaceCategory(ctx, owner, cat, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	next := []entry.Entry{
		{OwnerID: owner, Category: cat, Position: 1000, Key: "b", Value: entry.StringValue("vb2")},
		{OwnerID: owner, Category: cat, Position: 2000, Key: "d", Value: entry.StringValue("vd")},
	}
	if err := testStore.ReplaceCategory(ctx, owner, cat, next); err != nil {
		t.Fatalf("replace: %v", err)
	}

	entries, err := testStore.GetCategory(ctx, owner, cat)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", len(entries))
	}
	if entries[0].Key != "b" || entries[1].Key != "d" {
		t.Errorf("expected keys [b d], got [%s %s]", entries[0].Key, entries[1].Key)
	}
	for _, e := range entries {
		if e.Version != 1 {
			t.Errorf("expected replace to restart versions at 1, got %d for %s", e.Version, e.Key)
		}
	}
}

func TestReplaceCategory_LargeSetChunks(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()
	cat := entry.Sortable("queue")

	// 60 puts plus later deletes crosses the 25-request batch limit.
	entries := make([]entry.Entry, 60)
	for i := range entries {
		entries[i] = entry.Entry{
			OwnerID:  owner,
			Category: cat,
			Position: int64((i + 1) * 1000),
			Key:      fmt.Sprintf("track-%03d", i),
			Value:    entry.StringValue(fmt.Sprintf("value-%d", i)),
		}
	}
	if err := testStore.ReplaceCategory(ctx, owner, cat, entries); err != nil {
		t.Fatalf("replace: %v", err)
	}

	stored, err := testStore.GetCategory(ctx, owner, cat)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if len(stored) != 60 {
		t.Fatalf("expected 60 entries, got %d", len(stored))
	}
	for i, e := range stored {
		if e.Position != int64((i+1)*1000) {
			t.Errorf("expected position %d at index %d, got %d", (i+1)*1000, i, e.Position)
		}
	}

	if err := testStore.ReplaceCategory(ctx, owner, cat, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stored, err = testStore.GetCategory(ctx, owner, cat)
	if err != nil {
		t.Fatalf("get category after clear: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("expected empty category, got %d entries", len(stored))
	}
}

// --- Reposition Tests ---

func TestReposition_MovesAtomically(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()
	cat := entry.Sortable("queue")

	seed := []entry.Entry{
		{OwnerID: owner, Category: cat, Position: 1000, Key: "a", Value: entry.StringValue("va")},
		{OwnerID: owner, Category: cat, Position: 2000, Key: "b", Value: entry.StringValue("vb")},
	}
	if err := testStore.ReplaceCategory(ctx, owner, cat, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	moved := seed[1]
	moved.Position = 500
	version, err := testStore.Reposition(ctx, moved, 2000, 1)
	if err != nil {
		t.Fatalf("reposition: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	entries, err := testStore.GetCategory(ctx, owner, cat)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "b" || entries[0].Position != 500 {
		t.Errorf("expected b at 500 first, got %s at %d", entries[0].Key, entries[0].Position)
	}

	// Retrying with the stale version fails and leaves the list intact.
	moved.Position = 1500
	_, err = testStore.Reposition(ctx, moved, 500, 1)
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict on stale retry, got %v", err)
	}
}

// --- Delete Tests ---

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()

	e := entry.Entry{OwnerID: owner, Category: entry.Toggleable(), Key: "autoplay", Value: entry.BoolValue(true)}
	if _, err := testStore.UpsertUnconditional(ctx, e); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Delete twice - should not error
	if err := testStore.Delete(ctx, owner, entry.Toggleable(), entry.PositionUnordered, "autoplay"); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := testStore.Delete(ctx, owner, entry.Toggleable(), entry.PositionUnordered, "autoplay"); err != nil {
		t.Errorf("second delete should be idempotent, got: %v", err)
	}

	entries, err := testStore.GetCategory(ctx, owner, entry.Toggleable())
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty category after delete, got %d entries", len(entries))
	}
}

// --- Facade Tests ---

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()

	mem := cache.NewMemory(cache.DefaultConfig())
	defer mem.Close()
	svc := prefs.New(testStore, mem, prefs.Config{})
	defer svc.Close()

	if _, err := svc.SetToggle(ctx, owner, "autoplay", true); err != nil {
		t.Fatalf("set toggle: %v", err)
	}
	if _, err := svc.UpdateFavorites(ctx, owner, "artists", []string{"x", "y"}, nil); err != nil {
		t.Fatalf("create favorites: %v", err)
	}
	version, err := svc.UpdateFavorites(ctx, owner, "artists", []string{"z"}, []string{"x"})
	if err != nil {
		t.Fatalf("update favorites: %v", err)
	}
	if version != 2 {
		t.Errorf("expected favorites version 2 after read-modify-write, got %d", version)
	}
	items := []aggregate.SortableItem{
		{Key: "a", Value: "first"},
		{Key: "b", Value: "second"},
		{Key: "c", Value: "third"},
	}
	if err := svc.ReplaceSortable(ctx, owner, "queue", items); err != nil {
		t.Fatalf("replace sortable: %v", err)
	}

	position, err := svc.MoveSortableItem(ctx, owner, "queue", "c", "a")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if position != 1500 {
		t.Errorf("expected midpoint 1500, got %d", position)
	}

	view, err := svc.GetAll(ctx, owner)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if !view.Toggles["autoplay"] {
		t.Error("expected autoplay toggle in view")
	}
	if !slices.Equal(view.Favorites["artists"], []string{"y", "z"}) {
		t.Errorf("expected favorites [y z], got %v", view.Favorites["artists"])
	}
	queue := view.Sortables["queue"]
	if len(queue) != 3 || queue[0].Key != "a" || queue[1].Key != "c" || queue[2].Key != "b" {
		t.Errorf("expected order [a c b], got %v", queue)
	}
}

func TestService_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	owner := newOwner()

	svc := prefs.New(testStore, nil, prefs.Config{})
	defer svc.Close()

	version, err := svc.SetPreference(ctx, owner, "theme", "dark", prefs.WithIdempotencyToken("req-1"))
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	// The retry replays the recorded outcome; the stored version stays put.
	version, err = svc.SetPreference(ctx, owner, "theme", "dark", prefs.WithIdempotencyToken("req-1"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if version != 1 {
		t.Errorf("expected replayed version 1, got %d", version)
	}

	entries, err := svc.GetCategory(ctx, owner, entry.Preference())
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if entries[0].Version != 1 {
		t.Errorf("expected stored version still 1, got %d", entries[0].Version)
	}
}
