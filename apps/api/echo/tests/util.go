package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/practrac/practrac/apps/api/echo"
	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/drill"
	"github.com/practrac/practrac/core/note"
	"github.com/practrac/practrac/core/practice"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
	"github.com/practrac/practrac/services/email"
	"github.com/practrac/practrac/services/logger"
	"github.com/practrac/practrac/services/metrics"
	"github.com/practrac/practrac/storage/database/sqlx"
	"github.com/practrac/practrac/tests"
)

// pwd passes the password policy.
const pwd = "Qv7#rT2m!zX"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app          Server
	conf         *core.Config
	mailSvc      *emailsvc.ConsoleServiceMock
	db           *sqlx.DB
	metrics      *metrics.Metrics
	coachRepo    coach.Repository
	teamRepo     team.Repository
	drillRepo    drill.Repository
	practiceRepo practice.Repository
	coachSvc     coach.Service
	sessionSvc   session.Service
	clock        *clock
}

// clock is the clock of the session state machine, moved by the tests.
type clock struct {
	mu   sync.Mutex
	now  time.Time
	tick time.Duration // added after every reading
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.tick)
	return now
}

// Tick makes the clock move by d on its own at every reading.
func (c *clock) Tick(d time.Duration) {
	c.mu.Lock()
	c.tick = d
	c.mu.Unlock()
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// setup builds a server over a fresh database. confFns may tweak the configuration first.
func setup(t *testing.T, confFns ...func(conf *core.Config)) *testEnv {
	conf := testutil.NewConfig()
	for _, fn := range confFns {
		fn(conf)
	}

	// set up DB & repos
	db := testutil.PrepareDB(t)
	env := &testEnv{
		db:           db,
		conf:         conf,
		metrics:      metrics.New(conf.Build),
		coachRepo:    sqlxrepos.NewCoachRepository(db),
		teamRepo:     sqlxrepos.NewTeamRepository(db),
		drillRepo:    sqlxrepos.NewDrillRepository(db),
		practiceRepo: sqlxrepos.NewPracticeRepository(db),
		clock:        &clock{now: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)},
	}

	// set up services
	lgr := logsvc.NewRollbarLogger(zerolog.Nop(), conf)
	env.mailSvc = emailsvc.NewConsoleServiceMock(conf, lgr)
	env.coachSvc = coach.NewService(db, env.coachRepo, env.mailSvc, conf)
	teamSvc := team.NewService(db, env.teamRepo)
	drillSvc := drill.NewService(db, env.drillRepo)
	practiceSvc := practice.NewService(db, env.practiceRepo, drillSvc)
	env.sessionSvc = session.NewService(
		db, sqlxrepos.NewSessionRepository(db), teamSvc, env.coachSvc, env.mailSvc, lgr, conf,
		session.WithClock(env.clock.Now),
		session.WithObserver(env.metrics),
	)
	noteSvc := note.NewService(db, sqlxrepos.NewNoteRepository(db), teamSvc, practiceSvc, env.sessionSvc)

	// set up server
	env.app = NewServer(&Options{
		Conf:      conf,
		Logger:    lgr,
		AccessLog: zerolog.Nop(),
		Metrics:   env.metrics,
		DB:        db,
		Deps: Deps{
			CoachSvc:    env.coachSvc,
			TeamSvc:     teamSvc,
			DrillSvc:    drillSvc,
			PracticeSvc: practiceSvc,
			SessionSvc:  env.sessionSvc,
			NoteSvc:     noteSvc,
		},
	})
	return env
}

func (env *testEnv) createCoach(t *testing.T, name, uname string, roles ...string) coach.Coach {
	return testutil.CreateCoach(t, env.coachRepo, name, uname, uname+"@test.test", pwd, roles, true)
}

func (env *testEnv) token(t *testing.T, c coach.Coach) string {
	token, err := GenerateToken(env.conf, NewClaims(env.conf, c))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do serves the request and returns the recorded response.
func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (tt httpTest) run(t *testing.T, env *testEnv) {
	t.Run(tt.name, func(t *testing.T) {
		method := tt.method
		if method == "" {
			method = http.MethodGet
		}
		wantCode := tt.wantCode
		if wantCode == 0 {
			wantCode = http.StatusOK
		}
		rec := env.do(method, tt.path, tt.token, tt.body)
		assert.Equal(t, wantCode, rec.Code, rec.Body.String())
		if tt.wantData != nil {
			checkData(t, tt.wantData, rec)
		}
	})
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

// decode unmarshals the body of the response into a T.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var obj T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &obj), rec.Body.String())
	return obj
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkData(t *testing.T, want []byte, rec *httptest.ResponseRecorder) {
	ok, err := jsonBytesEqual(rec.Body.Bytes(), want)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(want))
	}
}
