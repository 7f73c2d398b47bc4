package simulator_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"geotrack.dev/geotrack/pkg/simulator"
)

var _ = Describe("Tracker", func() {
	const (
		centerLat = 48.8566
		centerLng = 2.3522
	)

	Describe("NewTracker", func() {
		It("should generate a populated tracker", func() {
			tracker := simulator.NewTracker(centerLat, centerLng, 1000)
			Expect(tracker).NotTo(BeNil())
			Expect(tracker.DeviceID).NotTo(BeEmpty())
			Expect(tracker.Name).NotTo(BeEmpty())
			Expect(tracker.OwnerID).NotTo(BeEmpty())
			Expect(tracker.Type).To(BeElementOf("child", "elderly", "object"))
		})

		It("should place the tracker near the center", func() {
			for i := 0; i < 20; i++ {
				tracker := simulator.NewTracker(centerLat, centerLng, 1000)
				Expect(tracker.Latitude).To(BeNumerically("~", centerLat, 0.01))
				Expect(tracker.Longitude).To(BeNumerically("~", centerLng, 0.01))
			}
		})
	})

	Describe("Movement", func() {
		It("should stay within realistic bounds over many steps", func() {
			tracker := simulator.NewTracker(centerLat, centerLng, 100)
			movement := simulator.NewMovement(tracker)

			var lastBattery = 100.0
			for i := 0; i < 200; i++ {
				sample := movement.Step(10 * time.Second)

				Expect(sample.Lat).To(BeNumerically(">=", -90))
				Expect(sample.Lat).To(BeNumerically("<=", 90))
				Expect(sample.Speed).To(BeNumerically(">=", 0))
				Expect(sample.Speed).To(BeNumerically("<=", 3.0))
				Expect(sample.Accuracy).To(BeNumerically(">=", 3))
				Expect(sample.Accuracy).To(BeNumerically("<=", 30))
				Expect(sample.BatteryLevel).To(BeNumerically("<=", lastBattery))
				lastBattery = sample.BatteryLevel
			}
		})

		It("should move the tracker over time", func() {
			tracker := simulator.NewTracker(centerLat, centerLng, 100)
			movement := simulator.NewMovement(tracker)

			first := movement.Step(30 * time.Second)
			moved := false
			for i := 0; i < 20; i++ {
				sample := movement.Step(30 * time.Second)
				if sample.Lat != first.Lat || sample.Lng != first.Lng {
					moved = true
					break
				}
			}
			Expect(moved).To(BeTrue())
		})
	})
})
