package device

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"rollcall.net.au/rollcall/core"
	"rollcall.net.au/rollcall/infrastructure/devops"
	"rollcall.net.au/rollcall/utils"
)

type fakeStore struct {
	devices        map[string]*core.Device
	employeesByPin map[string]uint

	raws     []*core.RawInboundRecord
	punches  []core.AttendancePunch
	lastSeen map[uint]time.Time

	resolvedTenant uint

	findErr    error
	rawErr     error
	resolveErr error
	insertErr  error
	touchErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		devices:        map[string]*core.Device{},
		employeesByPin: map[string]uint{},
		lastSeen:       map[uint]time.Time{},
	}
}

func (f *fakeStore) FindDeviceBySerial(ctx context.Context, serial string) (*core.Device, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	dev, ok := f.devices[serial]
	if !ok || !dev.Active {
		return nil, nil
	}
	return dev, nil
}

func (f *fakeStore) InsertRawInbound(ctx context.Context, rec *core.RawInboundRecord) error {
	if f.rawErr != nil {
		return f.rawErr
	}
	f.raws = append(f.raws, rec)
	return nil
}

func (f *fakeStore) ResolveEmployeeCodes(ctx context.Context, tenantID uint, pins []string) (map[string]uint, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	f.resolvedTenant = tenantID
	resolved := map[string]uint{}
	for _, pin := range pins {
		if id, ok := f.employeesByPin[pin]; ok {
			resolved[pin] = id
		}
	}
	return resolved, nil
}

func (f *fakeStore) InsertPunches(ctx context.Context, punches []core.AttendancePunch) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.punches = append(f.punches, punches...)
	return nil
}

func (f *fakeStore) TouchDeviceLastSeen(ctx context.Context, deviceID uint, at time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.lastSeen[deviceID] = at
	return nil
}

func testConfig() devops.Config {
	return devops.Config{
		DefaultTimezone:      "America/Guayaquil", // UTC-5, no DST
		RejectUnknownSerials: true,
		MaxBodyKiB:           256,
		DefaultTenantId:      1,
	}
}

func newTestRouter(store Store, cfg devops.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, NewEndpoint(store, cfg, nil, nil))
	return r
}

func postAttlog(r *gin.Engine, url string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registeredDevice() *core.Device {
	return &core.Device{
		DeviceId: 42,
		TenantId: 7,
		SerialNo: "ZK123456",
		Timezone: "America/Guayaquil",
		Active:   true,
	}
}

func TestHandshake(t *testing.T) {
	r := newTestRouter(newFakeStore(), testConfig())

	req := httptest.NewRequest(http.MethodGet, "/iclock/cdata?SN=ZK123456&options=all", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestCommandPoll(t *testing.T) {
	r := newTestRouter(newFakeStore(), testConfig())

	req := httptest.NewRequest(http.MethodGet, "/iclock/getrequest?SN=ZK123456", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestDataUploadUnknownSerialRejected(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, testConfig())

	w := postAttlog(r, "/iclock/cdata?SN=NOPE&table=ATTLOG", "1001\t2024-03-10 08:15:00\n")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "UNKNOWN_DEVICE", w.Body.String())

	// Rejected traffic is still evidenced, unattributed.
	assert.Len(t, store.raws, 1)
	assert.Nil(t, store.raws[0].TenantId)
	assert.Nil(t, store.raws[0].DeviceId)
	assert.Equal(t, "NOPE", store.raws[0].SerialNo)
	assert.Equal(t, "1001\t2024-03-10 08:15:00\n", store.raws[0].Body)

	assert.Empty(t, store.punches)
}

func TestDataUploadUnknownSerialSoftAccept(t *testing.T) {
	store := newFakeStore()
	cfg := testConfig()
	cfg.RejectUnknownSerials = false
	r := newTestRouter(store, cfg)

	w := postAttlog(r, "/iclock/cdata?SN=NOPE&table=ATTLOG", "1001\t2024-03-10 08:15:00\n")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	// Processed under the default tenant and default timezone (UTC-5).
	assert.Len(t, store.punches, 1)
	punch := store.punches[0]
	assert.Equal(t, uint(1), punch.TenantId)
	assert.Nil(t, punch.DeviceId)
	assert.Equal(t, "1001", punch.Pin)
	assert.Equal(t, time.Date(2024, 3, 10, 13, 15, 0, 0, time.UTC), punch.PunchedAt)
	assert.Equal(t, uint(1), store.resolvedTenant)
}

func TestDataUploadInactiveDeviceTreatedAsUnknown(t *testing.T) {
	store := newFakeStore()
	dev := registeredDevice()
	dev.Active = false
	store.devices[dev.SerialNo] = dev
	r := newTestRouter(store, testConfig())

	w := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", "1001\t2024-03-10 08:15:00\n")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "UNKNOWN_DEVICE", w.Body.String())
}

func TestDataUploadDeviceLookupErrorFailsClosed(t *testing.T) {
	store := newFakeStore()
	store.devices["ZK123456"] = registeredDevice()
	store.findErr = assert.AnError
	r := newTestRouter(store, testConfig())

	w := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", "1001\t2024-03-10 08:15:00\n")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Len(t, store.raws, 1, "lookup failure must still be evidenced")
}

func TestDataUploadAttlog(t *testing.T) {
	store := newFakeStore()
	store.devices["ZK123456"] = registeredDevice()
	store.employeesByPin["1001"] = 501

	r := newTestRouter(store, testConfig())

	body := "1001\t2024-03-10 08:15:00\t1\t0\n9999\t2024-03-10 08:20:00\t1\t0\ngarbage line\n1001\tnot-a-time\n"
	w := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	assert.Len(t, store.raws, 1)
	assert.Equal(t, utils.Ptr(uint(7)), store.raws[0].TenantId)
	assert.Equal(t, utils.Ptr(uint(42)), store.raws[0].DeviceId)

	// Two usable lines; the garbled line and the bad timestamp are skipped.
	assert.Len(t, store.punches, 2)

	matched := store.punches[0]
	assert.Equal(t, uint(7), matched.TenantId)
	assert.Equal(t, utils.Ptr(uint(501)), matched.EmployeeId)
	assert.Equal(t, utils.Ptr(uint(42)), matched.DeviceId)
	assert.Equal(t, "1001", matched.Pin)
	assert.Equal(t, time.Date(2024, 3, 10, 13, 15, 0, 0, time.UTC), matched.PunchedAt)
	assert.Equal(t, core.SourceBiometric, matched.Source)

	// Unmatched PIN keeps the raw code with a null employee.
	unmatched := store.punches[1]
	assert.Nil(t, unmatched.EmployeeId)
	assert.Equal(t, "9999", unmatched.Pin)

	// Last seen only after the successful batch write.
	_, touched := store.lastSeen[42]
	assert.True(t, touched)
}

func TestDataUploadOtherTableStillAcked(t *testing.T) {
	store := newFakeStore()
	store.devices["ZK123456"] = registeredDevice()
	r := newTestRouter(store, testConfig())

	w := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=OPERLOG", "some operation log\n")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Len(t, store.raws, 1, "unhandled tables are still evidenced")
	assert.Empty(t, store.punches)
}

func TestDataUploadCaseInsensitiveParams(t *testing.T) {
	store := newFakeStore()
	store.devices["ZK123456"] = registeredDevice()
	r := newTestRouter(store, testConfig())

	w := postAttlog(r, "/iclock/cdata?sn=ZK123456&Table=AttLog", "1001\t2024-03-10 08:15:00\n")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.punches, 1)
}

// No de-duplication: a retransmitted batch inserts again. Documented
// limitation; this test pins the behavior so a future dedup change is
// deliberate.
func TestDataUploadDuplicateSubmissionDoubleInserts(t *testing.T) {
	store := newFakeStore()
	store.devices["ZK123456"] = registeredDevice()
	r := newTestRouter(store, testConfig())

	body := "1001\t2024-03-10 08:15:00\n"
	w1 := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", body)
	w2 := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", body)

	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Len(t, store.punches, 2)
	assert.Len(t, store.raws, 2)
}

func TestDataUploadStorageFailuresKeepProtocolResponse(t *testing.T) {
	t.Run("audit insert failure", func(t *testing.T) {
		store := newFakeStore()
		store.devices["ZK123456"] = registeredDevice()
		store.rawErr = assert.AnError
		r := newTestRouter(store, testConfig())

		w := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", "1001\t2024-03-10 08:15:00\n")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, store.punches, 1, "processing continues past a failed audit write")
	})

	t.Run("punch insert failure", func(t *testing.T) {
		store := newFakeStore()
		store.devices["ZK123456"] = registeredDevice()
		store.insertErr = assert.AnError
		r := newTestRouter(store, testConfig())

		w := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", "1001\t2024-03-10 08:15:00\n")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, store.lastSeen, "last seen must not move without a successful batch")
	})

	t.Run("employee resolution failure", func(t *testing.T) {
		store := newFakeStore()
		store.devices["ZK123456"] = registeredDevice()
		store.resolveErr = assert.AnError
		r := newTestRouter(store, testConfig())

		w := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", "1001\t2024-03-10 08:15:00\n")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, store.punches, 1)
		assert.Nil(t, store.punches[0].EmployeeId, "punches land unmatched when resolution is down")
	})
}

func TestDataUploadBodyCeiling(t *testing.T) {
	store := newFakeStore()
	store.devices["ZK123456"] = registeredDevice()
	cfg := testConfig()
	cfg.MaxBodyKiB = 1
	r := newTestRouter(store, cfg)

	w := postAttlog(r, "/iclock/cdata?SN=ZK123456&table=ATTLOG", strings.Repeat("x", 4096))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.raws, 1)
	assert.LessOrEqual(t, len(store.raws[0].Body), 1024)
}

func TestEvidenceKey(t *testing.T) {
	rec := &core.RawInboundRecord{ID: "abc-123", SerialNo: "ZK123456", TenantId: utils.Ptr(uint(7))}
	assert.Equal(t, "raw/7/ZK123456/abc-123.txt", EvidenceKey(rec))

	rec = &core.RawInboundRecord{ID: "abc-123"}
	assert.Equal(t, "raw/unknown/unknown/abc-123.txt", EvidenceKey(rec))
}
