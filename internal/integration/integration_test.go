package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	pgloader "quiz-session-service/internal/infra/postgres"
	pgmigrations "quiz-session-service/internal/infra/postgres/migrations"
	redisinfra "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/securestore"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// The seeded document deliberately uses the loose external shape (numeric
// ids, correctIndex) to exercise boundary normalization on the way in.
const seededQuizJSON = `{
	"id": 1,
	"title": "Integration Quiz",
	"questions": [
		{
			"id": 1,
			"text": "What is 2 + 2?",
			"options": [{"id": 1, "text": "3"}, {"id": 2, "text": "4"}],
			"correct_id": 2
		},
		{
			"id": 2,
			"text": "Pick the second option",
			"options": ["first", "second"],
			"correctIndex": 1
		}
	]
}`

func TestExamFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, "1", seededQuizJSON)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := pgloader.NewQuizLoader(pool)
	quizRepo := redisinfra.NewQuizRepository(redisClient, loader, 5*time.Minute)
	store, err := securestore.New(securestore.Config{
		Key:     "integration-secret",
		Backend: redisinfra.NewSessionBackend(redisClient, 5*time.Minute),
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	service := app.NewSessionService(store, quizRepo)

	key, err := service.PrepareByID(ctx, "1", app.PrepareOptions{})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	sess, err := service.LoadSession(ctx, key, app.ModeExam)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	quiz := sess.Quiz()
	if len(quiz.Questions) != 2 || quiz.Title != "Integration Quiz" {
		t.Fatalf("unexpected normalized quiz %+v", quiz)
	}

	if err := sess.RecordAnswer(ctx, quiz.Questions[0].CorrectID); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sess.GoTo(ctx, 1); err != nil {
		t.Fatalf("goto: %v", err)
	}

	// A reload mid-attempt must rehydrate the same answers from Redis.
	reloaded, err := service.LoadSession(ctx, key, app.ModeExam)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	state := reloaded.State()
	if state.CurrentIndex != 1 || !state.Answers[0].Answered() {
		t.Fatalf("expected rehydrated state, got %+v", state)
	}

	if err := reloaded.RecordAnswer(ctx, quiz.Questions[1].CorrectID); err != nil {
		t.Fatalf("record: %v", err)
	}
	summary, err := reloaded.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if summary.Correct != 2 || summary.Total != 2 || summary.Percent != 100 {
		t.Fatalf("expected full score, got %+v", summary)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn, quizID, data string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quizID, data); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
