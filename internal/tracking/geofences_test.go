package tracking_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"geotrack.dev/geotrack/internal/tracking"
)

var _ = Describe("Geofences", func() {
	var (
		env    *testEnv
		ctx    context.Context
		device *tracking.Device
	)

	// Zone centered on the Louvre; insideLat/outsideLat are well within
	// and well outside its 200m radius.
	const (
		zoneLat    = 48.8606
		zoneLng    = 2.3376
		insideLat  = 48.8607
		outsideLat = 48.9000
	)

	BeforeEach(func() {
		env = newTestEnv()
		ctx = context.Background()

		var err error
		device, err = env.service.AddDevice(ctx, tracking.DeviceInput{
			Name:    "Emma's watch",
			Type:    tracking.DeviceTypeChild,
			OwnerID: "uid-001",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	addZone := func() *tracking.Geofence {
		zone, err := env.service.AddGeofence(ctx, device.ID, tracking.GeofenceInput{
			Name:   "School",
			Lat:    ptr(zoneLat),
			Lng:    ptr(zoneLng),
			Radius: ptr(200),
		})
		Expect(err).NotTo(HaveOccurred())
		return zone
	}

	report := func(lat float64) {
		_, err := env.service.ReportPosition(ctx, tracking.PositionReport{
			DeviceID: device.ID,
			Lat:      ptr(lat),
			Lng:      ptr(zoneLng),
		})
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("AddGeofence", func() {
		It("should create an active zone with no classification", func() {
			zone := addZone()
			Expect(zone.ID).NotTo(BeEmpty())
			Expect(zone.Active).To(BeTrue())
			Expect(zone.WasInside).To(BeNil())
		})

		It("should accept a zone centered on the origin", func() {
			zone, err := env.service.AddGeofence(ctx, device.ID, tracking.GeofenceInput{
				Name:   "Null island",
				Lat:    ptr(0),
				Lng:    ptr(0),
				Radius: ptr(100),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(zone.Lat).To(Equal(0.0))
			Expect(zone.Lng).To(Equal(0.0))
		})

		It("should reject a non-positive radius", func() {
			_, err := env.service.AddGeofence(ctx, device.ID, tracking.GeofenceInput{
				Name:   "School",
				Lat:    ptr(zoneLat),
				Lng:    ptr(zoneLng),
				Radius: ptr(0),
			})
			Expect(tracking.IsValidation(err)).To(BeTrue())
		})

		It("should reject missing coordinates", func() {
			_, err := env.service.AddGeofence(ctx, device.ID, tracking.GeofenceInput{
				Name:   "School",
				Radius: ptr(200),
			})
			Expect(tracking.IsValidation(err)).To(BeTrue())
		})
	})

	Describe("evaluation", func() {
		It("should emit one enter and one exit across a crossing sequence", func() {
			addZone()

			for _, lat := range []float64{outsideLat, outsideLat, insideLat, insideLat, outsideLat} {
				report(lat)
			}

			notifications, err := env.service.ListNotifications(ctx, "uid-001", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(notifications).To(HaveLen(2))

			// Newest first: the exit precedes the enter in the listing.
			Expect(notifications[0].Type).To(Equal(tracking.NotificationExit))
			Expect(notifications[1].Type).To(Equal(tracking.NotificationEnter))
			Expect(notifications[0].DeviceID).To(Equal(device.ID))
			Expect(notifications[0].Read).To(BeFalse())
			Expect(notifications[0].Message).To(ContainSubstring("School"))
		})

		It("should only persist the classification on the first evaluation", func() {
			zone := addZone()
			report(insideLat)

			notifications, err := env.service.ListNotifications(ctx, "uid-001", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(notifications).To(BeEmpty())

			zones, err := env.service.Geofences(ctx, device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(zones).To(HaveLen(1))
			Expect(zones[0].ID).To(Equal(zone.ID))
			Expect(zones[0].WasInside).NotTo(BeNil())
			Expect(*zones[0].WasInside).To(BeTrue())
		})

		It("should stay silent while the classification is unchanged", func() {
			addZone()
			for i := 0; i < 3; i++ {
				report(insideLat)
			}

			notifications, err := env.service.ListNotifications(ctx, "uid-001", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(notifications).To(BeEmpty())
		})

		It("should skip inactive zones", func() {
			zone := addZone()
			err := env.service.UpdateGeofence(ctx, device.ID, zone.ID, map[string]any{"active": false})
			Expect(err).NotTo(HaveOccurred())

			report(insideLat)
			report(outsideLat)

			notifications, err := env.service.ListNotifications(ctx, "uid-001", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(notifications).To(BeEmpty())

			zones, err := env.service.Geofences(ctx, device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(zones[0].WasInside).To(BeNil())
		})

		It("should count a position on the boundary as inside", func() {
			zone, err := env.service.AddGeofence(ctx, device.ID, tracking.GeofenceInput{
				Name:   "Point zone",
				Lat:    ptr(zoneLat),
				Lng:    ptr(zoneLng),
				Radius: ptr(0.5),
			})
			Expect(err).NotTo(HaveOccurred())

			report(zoneLat)

			zones, err := env.service.Geofences(ctx, device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(zones[0].ID).To(Equal(zone.ID))
			Expect(*zones[0].WasInside).To(BeTrue())
		})
	})

	Describe("UpdateGeofence", func() {
		It("should merge fields and stamp updatedAt", func() {
			zone := addZone()

			err := env.service.UpdateGeofence(ctx, device.ID, zone.ID, map[string]any{"radius": 500.0})
			Expect(err).NotTo(HaveOccurred())

			zones, err := env.service.Geofences(ctx, device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(zones[0].Radius).To(Equal(500.0))
			Expect(zones[0].Name).To(Equal("School"))
			Expect(zones[0].UpdatedAt).NotTo(BeEmpty())
		})

		It("should reject a non-positive radius", func() {
			zone := addZone()
			err := env.service.UpdateGeofence(ctx, device.ID, zone.ID, map[string]any{"radius": -1.0})
			Expect(tracking.IsValidation(err)).To(BeTrue())
		})

		It("should report an unknown zone", func() {
			err := env.service.UpdateGeofence(ctx, device.ID, "missing", map[string]any{"name": "x"})
			Expect(tracking.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("DeleteGeofence", func() {
		It("should remove the zone", func() {
			zone := addZone()
			Expect(env.service.DeleteGeofence(ctx, device.ID, zone.ID)).To(Succeed())

			zones, err := env.service.Geofences(ctx, device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(zones).To(BeEmpty())
		})

		It("should report an unknown zone", func() {
			err := env.service.DeleteGeofence(ctx, device.ID, "missing")
			Expect(tracking.IsNotFound(err)).To(BeTrue())
		})
	})
})
