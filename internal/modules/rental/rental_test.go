// README: Rental state-machine tests (flow, guards, races). Needs PORING_TEST_DSN.
package rental

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"poring/internal/modules/bike"
	"poring/internal/modules/fee"
	"poring/internal/modules/hub"
	"poring/internal/modules/user"
)

type testEnv struct {
	db  *pgxpool.Pool
	svc *Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("PORING_TEST_DSN")
	if dsn == "" {
		t.Skip("PORING_TEST_DSN not set; skipping DB-backed rental tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx,
		"TRUNCATE TABLE missions, rentals, bikes, zones, stations, hubs, users, chat_usage"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	svc := NewService(NewStore(db), hub.NewStore(db), bike.NewStore(db), user.NewStore(db))
	return &testEnv{db: db, svc: svc}
}

func (e *testEnv) seedUser(t *testing.T, id int64) {
	t.Helper()
	if _, err := e.db.Exec(context.Background(),
		`INSERT INTO users (user_id, user_name, points) VALUES ($1, $2, 0)`,
		id, "rider"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (e *testEnv) seedHub(t *testing.T, id int64, name string) {
	t.Helper()
	if _, err := e.db.Exec(context.Background(),
		`INSERT INTO hubs (hub_id, hub_name, latitude, longitude) VALUES ($1, $2, 36.0126, 129.3235)`,
		id, name); err != nil {
		t.Fatalf("seed hub: %v", err)
	}
}

func (e *testEnv) seedStation(t *testing.T, id, hubID int64, total, parked int) {
	t.Helper()
	if _, err := e.db.Exec(context.Background(),
		`INSERT INTO stations (station_id, hub_id, total_slots, parked_slots) VALUES ($1, $2, $3, $4)`,
		id, hubID, total, parked); err != nil {
		t.Fatalf("seed station: %v", err)
	}
}

func (e *testEnv) seedZone(t *testing.T, id, hubID int64, parked int) {
	t.Helper()
	if _, err := e.db.Exec(context.Background(),
		`INSERT INTO zones (zone_id, hub_id, parked_slots) VALUES ($1, $2, $3)`,
		id, hubID, parked); err != nil {
		t.Fatalf("seed zone: %v", err)
	}
}

func (e *testEnv) seedBike(t *testing.T, id int64, kind hub.LocationKind, hubID, szID int64, battery int) {
	t.Helper()
	if _, err := e.db.Exec(context.Background(), `
		INSERT INTO bikes (bike_id, serial_number, status, where_parked, assigned_hub_id,
			assigned_sz_id, battery_level, is_active, is_under_repair, is_retired)
		VALUES ($1, $2, 'Returned', $3, $4, $5, $6, TRUE, FALSE, FALSE)`,
		id, "SN-test", kind, hubID, szID, battery); err != nil {
		t.Fatalf("seed bike: %v", err)
	}
}

func (e *testEnv) stationParked(t *testing.T, id int64) int {
	t.Helper()
	var n int
	if err := e.db.QueryRow(context.Background(),
		`SELECT parked_slots FROM stations WHERE station_id = $1`, id).Scan(&n); err != nil {
		t.Fatalf("read station: %v", err)
	}
	return n
}

func (e *testEnv) zoneParked(t *testing.T, id int64) int {
	t.Helper()
	var n int
	if err := e.db.QueryRow(context.Background(),
		`SELECT parked_slots FROM zones WHERE zone_id = $1`, id).Scan(&n); err != nil {
		t.Fatalf("read zone: %v", err)
	}
	return n
}

func TestRentalStartAndClose(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, 1)
	env.seedHub(t, 10, "Library")
	env.seedStation(t, 100, 10, 5, 1)
	env.seedBike(t, 1000, hub.KindStation, 10, 100, 80)

	startAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return startAt }

	res, err := env.svc.Start(ctx, StartCommand{UserID: 1, BikeID: 1000})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.RentalCode == "" || res.HubName != "Library" {
		t.Fatalf("unexpected start result: %+v", res)
	}
	if got := env.stationParked(t, 100); got != 0 {
		t.Fatalf("station parked after start = %d, want 0", got)
	}

	open, err := env.svc.Open(ctx, 1)
	if err != nil {
		t.Fatalf("open rental lookup: %v", err)
	}
	if open.BikeID != 1000 || open.PaymentStatus != PaymentPending {
		t.Fatalf("unexpected open rental: %+v", open)
	}

	// 30 off-peak minutes at 5 per minute.
	env.svc.now = func() time.Time { return startAt.Add(30 * time.Minute) }
	closed, err := env.svc.Close(ctx, CloseCommand{UserID: 1, HubID: 10, Kind: hub.KindStation})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.DurationMinutes != 30 {
		t.Fatalf("duration = %d, want 30", closed.DurationMinutes)
	}
	if closed.Charged.Amount != 30*5+30*25 {
		t.Fatalf("charged = %d, want %d", closed.Charged.Amount, 30*5+30*25)
	}
	if closed.Final.Amount != closed.Charged.Amount {
		t.Fatalf("final = %d, want %d", closed.Final.Amount, closed.Charged.Amount)
	}
	if got := env.stationParked(t, 100); got != 1 {
		t.Fatalf("station parked after close = %d, want 1", got)
	}

	if _, err := env.svc.Open(ctx, 1); err != ErrRentalNotFound {
		t.Fatalf("open after close: expected ErrRentalNotFound, got %v", err)
	}
}

func TestRentalOneOpenPerUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, 1)
	env.seedHub(t, 10, "Library")
	env.seedStation(t, 100, 10, 5, 2)
	env.seedBike(t, 1000, hub.KindStation, 10, 100, 80)
	env.seedBike(t, 1001, hub.KindStation, 10, 100, 70)

	if _, err := env.svc.Start(ctx, StartCommand{UserID: 1, BikeID: 1000}); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := env.svc.Start(ctx, StartCommand{UserID: 1, BikeID: 1001}); err != ErrRentalActive {
		t.Fatalf("second start: expected ErrRentalActive, got %v", err)
	}
}

func TestRentalStartUnknownUserAndBike(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, 1)

	if _, err := env.svc.Start(ctx, StartCommand{UserID: 99, BikeID: 1000}); err != user.ErrNotFound {
		t.Fatalf("unknown user: expected user.ErrNotFound, got %v", err)
	}
	if _, err := env.svc.Start(ctx, StartCommand{UserID: 1, BikeID: 1000}); err != bike.ErrNotFound {
		t.Fatalf("unknown bike: expected bike.ErrNotFound, got %v", err)
	}
}

func TestRentalConcurrentStartSameBike(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedHub(t, 10, "Library")
	env.seedStation(t, 100, 10, 5, 1)
	env.seedBike(t, 1000, hub.KindStation, 10, 100, 80)

	userIDs := []int64{1, 2, 3, 4}
	for _, id := range userIDs {
		env.seedUser(t, id)
	}

	errs := make(chan error, len(userIDs))
	start := make(chan struct{})
	var wg sync.WaitGroup

	for _, id := range userIDs {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			<-start
			_, err := env.svc.Start(ctx, StartCommand{UserID: uid, BikeID: 1000})
			errs <- err
		}(id)
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != hub.ErrSlotConflict && err != bike.ErrNotAvailable {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful start, got %d", success)
	}
	if got := env.stationParked(t, 100); got != 0 {
		t.Fatalf("station parked = %d, want 0", got)
	}
}

func TestZoneReturnOnlyWhenHubFull(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, 1)
	env.seedHub(t, 10, "Library")
	env.seedStation(t, 100, 10, 2, 1)
	env.seedZone(t, 200, 10, 0)
	env.seedBike(t, 1000, hub.KindStation, 10, 100, 80)

	if _, err := env.svc.Start(ctx, StartCommand{UserID: 1, BikeID: 1000}); err != nil {
		t.Fatalf("start: %v", err)
	}

	// One free dock remains, so the zone return must be refused and nothing mutated.
	if _, err := env.svc.Close(ctx, CloseCommand{UserID: 1, HubID: 10, Kind: hub.KindZone}); err != ErrStationReturnRequired {
		t.Fatalf("zone return: expected ErrStationReturnRequired, got %v", err)
	}
	if got := env.zoneParked(t, 200); got != 0 {
		t.Fatalf("zone parked mutated to %d on refused return", got)
	}
	if _, err := env.svc.Open(ctx, 1); err != nil {
		t.Fatalf("rental should still be open: %v", err)
	}

	// Fill the docks; now the zone return goes through.
	if _, err := env.db.Exec(ctx, `UPDATE stations SET parked_slots = total_slots WHERE hub_id = 10`); err != nil {
		t.Fatalf("fill stations: %v", err)
	}
	closed, err := env.svc.Close(ctx, CloseCommand{UserID: 1, HubID: 10, Kind: hub.KindZone})
	if err != nil {
		t.Fatalf("zone return after fill: %v", err)
	}
	if closed.ReturnKind != hub.KindZone {
		t.Fatalf("return kind = %s, want Zone", closed.ReturnKind)
	}
	if got := env.zoneParked(t, 200); got != 1 {
		t.Fatalf("zone parked = %d, want 1", got)
	}
}

func TestStationReturnWithNoFreeDock(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, 1)
	env.seedHub(t, 10, "Library")
	env.seedStation(t, 100, 10, 1, 1)
	env.seedBike(t, 1000, hub.KindStation, 10, 100, 80)

	if _, err := env.svc.Start(ctx, StartCommand{UserID: 1, BikeID: 1000}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.db.Exec(ctx, `UPDATE stations SET parked_slots = total_slots WHERE hub_id = 10`); err != nil {
		t.Fatalf("fill stations: %v", err)
	}
	if _, err := env.svc.Close(ctx, CloseCommand{UserID: 1, HubID: 10, Kind: hub.KindStation}); err != hub.ErrStationFull {
		t.Fatalf("station return at full hub: expected ErrStationFull, got %v", err)
	}
}

func TestFullDayCap(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, 1)
	env.seedHub(t, 10, "Library")
	env.seedStation(t, 100, 10, 5, 1)
	env.seedBike(t, 1000, hub.KindStation, 10, 100, 80)

	startAt := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return startAt }
	if _, err := env.svc.Start(ctx, StartCommand{UserID: 1, BikeID: 1000}); err != nil {
		t.Fatalf("start: %v", err)
	}

	env.svc.now = func() time.Time { return startAt.Add(24 * time.Hour) }
	closed, err := env.svc.Close(ctx, CloseCommand{UserID: 1, HubID: 10, Kind: hub.KindStation})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Charged.Amount != fee.FullDayFee {
		t.Fatalf("charged = %d, want %d", closed.Charged.Amount, fee.FullDayFee)
	}
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
