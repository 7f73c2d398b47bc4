package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"geotrack.dev/geotrack/internal/api"
	"geotrack.dev/geotrack/internal/identity/mock"
	"geotrack.dev/geotrack/internal/store"
	"geotrack.dev/geotrack/internal/tracking"
)

var _ = Describe("Handlers", func() {
	var handler http.Handler

	BeforeEach(func() {
		logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
		service, err := tracking.New(&tracking.Config{
			Logger:   logger,
			Store:    store.NewMemoryStore(),
			Identity: mock.NewMockProvider(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err := api.NewServer(&api.ServerConfig{
			Logger:   logger,
			Service:  service,
			HTTPPort: 8080,
		})
		Expect(err).NotTo(HaveOccurred())
		handler = server.Handler()
	})

	do := func(method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(encoded)
		}

		req := httptest.NewRequest(method, target, reader)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var envelope map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &envelope)).To(Succeed())
		return rec, envelope
	}

	register := func() string {
		_, envelope := do("POST", "/auth", map[string]any{
			"action":      "register",
			"email":       "alice@example.com",
			"password":    "secret",
			"displayName": "Alice",
		})
		Expect(envelope["success"]).To(BeTrue())
		return envelope["userId"].(string)
	}

	addDevice := func(owner string) string {
		_, envelope := do("POST", "/devices", map[string]any{
			"action": "add",
			"deviceData": map[string]any{
				"name":    "Rover",
				"type":    "object",
				"ownerId": owner,
			},
		})
		Expect(envelope["success"]).To(BeTrue())
		deviceID := envelope["deviceId"].(string)
		Expect(envelope["device"].(map[string]any)["id"]).To(Equal(deviceID))
		return deviceID
	}

	Describe("POST /auth", func() {
		It("should register and login", func() {
			uid := register()
			Expect(uid).NotTo(BeEmpty())

			rec, envelope := do("POST", "/auth", map[string]any{
				"action":   "login",
				"email":    "alice@example.com",
				"password": "secret",
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(envelope["userId"]).To(Equal(uid))
		})

		It("should reject an unknown action", func() {
			rec, envelope := do("POST", "/auth", map[string]any{"action": "enroll"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(envelope["success"]).To(BeFalse())
			Expect(envelope["error"]).To(ContainSubstring("unknown auth action"))
		})

		It("should pass provider errors through", func() {
			register()
			rec, envelope := do("POST", "/auth", map[string]any{
				"action":   "login",
				"email":    "alice@example.com",
				"password": "wrong",
			})
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(envelope["error"]).To(Equal("INVALID_LOGIN_CREDENTIALS"))
		})

		It("should reject a malformed body", func() {
			req := httptest.NewRequest("POST", "/auth", bytes.NewReader([]byte("{")))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("/devices", func() {
		It("should add and list devices", func() {
			uid := register()
			deviceID := addDevice(uid)

			rec, envelope := do("GET", "/devices?userId="+uid, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			devices := envelope["devices"].([]any)
			Expect(devices).To(HaveLen(1))
			Expect(devices[0].(map[string]any)["id"]).To(Equal(deviceID))
		})

		It("should update a device", func() {
			uid := register()
			deviceID := addDevice(uid)

			rec, _ := do("POST", "/devices", map[string]any{
				"action":     "update",
				"deviceId":   deviceID,
				"deviceData": map[string]any{"name": "Updated"},
			})
			Expect(rec.Code).To(Equal(http.StatusOK))

			_, envelope := do("GET", "/devices?userId="+uid, nil)
			devices := envelope["devices"].([]any)
			Expect(devices[0].(map[string]any)["name"]).To(Equal("Updated"))
		})

		It("should delete a device", func() {
			uid := register()
			deviceID := addDevice(uid)

			rec, _ := do("DELETE", "/devices?deviceId="+deviceID, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec, _ = do("DELETE", "/devices?deviceId="+deviceID, nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should reject an invalid device type", func() {
			rec, _ := do("POST", "/devices", map[string]any{
				"action": "add",
				"deviceData": map[string]any{
					"name":    "Rover",
					"type":    "drone",
					"ownerId": "uid-001",
				},
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("/positions", func() {
		It("should report and fetch positions", func() {
			uid := register()
			deviceID := addDevice(uid)

			rec, envelope := do("POST", "/positions", map[string]any{
				"deviceId": deviceID,
				"lat":      48.8566,
				"lng":      2.3522,
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(envelope["positionId"]).NotTo(BeEmpty())

			rec, envelope = do("GET", "/positions?deviceId="+deviceID, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			positions := envelope["positions"].([]any)
			Expect(positions).To(HaveLen(1))

			rec, envelope = do("GET", "/positions?deviceId="+deviceID+"&lastOnly=true", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			position := envelope["position"].(map[string]any)
			Expect(position["lat"]).To(Equal(48.8566))
		})

		It("should report an unknown device as not found", func() {
			rec, _ := do("POST", "/positions", map[string]any{
				"deviceId": "missing",
				"lat":      48.8566,
				"lng":      2.3522,
			})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should reject a non-numeric limit", func() {
			rec, _ := do("GET", "/positions?deviceId=abc&limit=many", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should export history as CSV", func() {
			uid := register()
			deviceID := addDevice(uid)

			for i := 0; i < 2; i++ {
				rec, _ := do("POST", "/positions", map[string]any{
					"deviceId": deviceID,
					"lat":      float64(10 + i),
					"lng":      2.0,
				})
				Expect(rec.Code).To(Equal(http.StatusOK))
			}

			rec, envelope := do("PUT", "/positions", map[string]any{
				"deviceId": deviceID,
				"format":   "csv",
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(envelope["format"]).To(Equal("csv"))
			Expect(envelope["data"].(string)).To(HavePrefix("timestamp,lat,lng"))
		})

		It("should reject an unsupported export format", func() {
			rec, _ := do("PUT", "/positions", map[string]any{
				"deviceId": "abc",
				"format":   "xml",
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("/geofence", func() {
		It("should add, list, update and delete a zone", func() {
			uid := register()
			deviceID := addDevice(uid)

			rec, envelope := do("POST", "/geofence", map[string]any{
				"deviceId": deviceID,
				"geofenceData": map[string]any{
					"name":   "School",
					"lat":    48.8606,
					"lng":    2.3376,
					"radius": 200,
				},
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
			zoneID := envelope["geofenceId"].(string)
			Expect(envelope["geofence"].(map[string]any)["id"]).To(Equal(zoneID))

			rec, envelope = do("GET", "/geofence?deviceId="+deviceID, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(envelope["geofences"].([]any)).To(HaveLen(1))

			rec, _ = do("PUT", "/geofence", map[string]any{
				"deviceId":     deviceID,
				"geofenceId":   zoneID,
				"geofenceData": map[string]any{"radius": 500},
			})
			Expect(rec.Code).To(Equal(http.StatusOK))

			target := fmt.Sprintf("/geofence?deviceId=%s&geofenceId=%s", deviceID, zoneID)
			rec, _ = do("DELETE", target, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec, _ = do("DELETE", target, nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("/notifications", func() {
		It("should create, list, mark and delete notifications", func() {
			uid := register()

			rec, envelope := do("POST", "/notifications", map[string]any{
				"userId": uid,
				"notificationData": map[string]any{
					"type":     "geofence_enter",
					"deviceId": "device-1",
					"message":  "Rover entered zone",
				},
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
			notificationID := envelope["notificationId"].(string)
			Expect(envelope["notification"].(map[string]any)["id"]).To(Equal(notificationID))

			rec, envelope = do("GET", "/notifications?userId="+uid, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(envelope["notifications"].([]any)).To(HaveLen(1))

			rec, _ = do("PUT", "/notifications", map[string]any{
				"userId":         uid,
				"notificationId": notificationID,
			})
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec, _ = do("PUT", "/notifications", map[string]any{
				"userId":  uid,
				"markAll": true,
			})
			Expect(rec.Code).To(Equal(http.StatusOK))

			target := fmt.Sprintf("/notifications?userId=%s&notificationId=%s", uid, notificationID)
			rec, _ = do("DELETE", target, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			_, envelope = do("GET", "/notifications?userId="+uid, nil)
			Expect(envelope["notifications"].([]any)).To(BeEmpty())
		})

		It("should report an unknown notification as not found", func() {
			rec, _ := do("PUT", "/notifications", map[string]any{
				"userId":         "uid-001",
				"notificationId": "missing",
			})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /health", func() {
		It("should report ok", func() {
			rec, envelope := do("GET", "/health", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(envelope["status"]).To(Equal("ok"))
		})
	})
})
