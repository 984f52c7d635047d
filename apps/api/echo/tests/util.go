package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	enlocale "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/org"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app  Server
	conf *core.Config

	usrRepo   user.Repository
	orgRepo   org.Repository
	subRepo   submission.Repository
	notifRepo notification.Repository
	auditRepo audit.Repository

	mailSvc *testutil.EmailServiceMock
}

type loggerStub struct{}

func (loggerStub) Debug(string, ...interface{}) {}
func (loggerStub) Info(string, ...interface{})  {}
func (loggerStub) Warn(string, ...interface{})  {}
func (loggerStub) Error(string, ...interface{}) {}
func (loggerStub) Fatal(string, ...interface{}) {}

func setup(t *testing.T, mutateConf ...func(*core.Config)) *env {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	conf := testutil.NewConfig()
	// httptest requests target example.com
	conf.API.PublicOrigin = "http://example.com"
	// stable error payloads
	conf.Debug = false
	for _, fn := range mutateConf {
		fn(conf)
	}

	enLoc := enlocale.New()
	uni := ut.New(enLoc, enLoc)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	submission.InitValidators(validate, translator)

	e := &env{
		conf:      conf,
		usrRepo:   dummydb.NewUserRepository(db),
		orgRepo:   dummydb.NewOrgRepository(db),
		subRepo:   dummydb.NewSubmissionRepository(db),
		notifRepo: dummydb.NewNotificationRepository(db),
		auditRepo: dummydb.NewAuditRepository(db),
		mailSvc:   &testutil.EmailServiceMock{},
	}

	usrSvc := user.NewServiceMock(nil, e.usrRepo, e.mailSvc, conf)
	orgSvc := org.NewService(nil, e.orgRepo, conf)
	auditSvc := audit.NewService(nil, e.auditRepo)
	notifSvc := notification.NewService(nil, e.notifRepo, usrSvc, e.mailSvc, loggerStub{}, conf)
	subSvc := submission.NewService(nil, e.subRepo, orgSvc, auditSvc, notifSvc, conf)

	e.app = NewServer(
		&Options{
			DisableReqLogs: true,

			Conf:       conf,
			Logger:     loggerStub{},
			Validate:   validate,
			Translator: translator,

			UserSvc:         usrSvc,
			OrgSvc:          orgSvc,
			SubmissionSvc:   subSvc,
			NotificationSvc: notifSvc,
			AuditSvc:        auditSvc,
		},
	)
	return e
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
	wantLoc  string // expected redirect Location, if any
	extra    interface{}
}

func (e *env) newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: e.conf.Session.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (e *env) newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return e.newAuthRequest(method, path, "", data...)
}

func (e *env) getToken(t *testing.T, usr user.User, viewingAsStudent ...bool) string {
	t.Helper()

	var viewing bool
	if len(viewingAsStudent) > 0 {
		viewing = viewingAsStudent[0]
	}
	claims := GetUserClaims(e.conf, usr, viewing)
	token, err := GenerateToken(e.conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantLoc != "" {
		if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
			t.Errorf("failed! location = %q; wantLoc %q", loc, tt.wantLoc)
		}
		return
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
