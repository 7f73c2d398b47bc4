package tracking_test

import (
	"context"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"geotrack.dev/geotrack/internal/tracking"
)

var _ = Describe("ExportPositions", func() {
	var (
		env    *testEnv
		ctx    context.Context
		device *tracking.Device
	)

	BeforeEach(func() {
		env = newTestEnv()
		ctx = context.Background()

		var err error
		device, err = env.service.AddDevice(ctx, tracking.DeviceInput{
			Name:    "Rover",
			Type:    tracking.DeviceTypeObject,
			OwnerID: "uid-001",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject an unsupported format", func() {
		_, err := env.service.ExportPositions(ctx, device.ID, "xml", 0)
		Expect(tracking.IsValidation(err)).To(BeTrue())
	})

	Describe("JSON", func() {
		It("should render the history oldest first", func() {
			for _, lat := range []float64{10, 11, 12} {
				_, err := env.service.ReportPosition(ctx, tracking.PositionReport{
					DeviceID: device.ID,
					Lat:      ptr(lat),
					Lng:      ptr(2.0),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			out, err := env.service.ExportPositions(ctx, device.ID, tracking.FormatJSON, 0)
			Expect(err).NotTo(HaveOccurred())

			var positions []tracking.Position
			Expect(json.Unmarshal([]byte(out), &positions)).To(Succeed())
			Expect(positions).To(HaveLen(3))
			Expect(positions[0].Lat).To(Equal(10.0))
			Expect(positions[2].Lat).To(Equal(12.0))
			Expect(positions[0].ID).NotTo(BeEmpty())
		})

		It("should render an empty history as an empty array", func() {
			out, err := env.service.ExportPositions(ctx, device.ID, tracking.FormatJSON, 0)
			Expect(err).NotTo(HaveOccurred())

			var positions []tracking.Position
			Expect(json.Unmarshal([]byte(out), &positions)).To(Succeed())
			Expect(positions).To(BeEmpty())
		})
	})

	Describe("CSV", func() {
		It("should return the sentinel for an empty history", func() {
			out, err := env.service.ExportPositions(ctx, device.ID, tracking.FormatCSV, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("No data available"))
		})

		It("should derive the header from the first record", func() {
			_, err := env.service.ReportPosition(ctx, tracking.PositionReport{
				DeviceID: device.ID,
				Lat:      ptr(48.8566),
				Lng:      ptr(2.3522),
				Speed:    ptr(4.5),
			})
			Expect(err).NotTo(HaveOccurred())

			out, err := env.service.ExportPositions(ctx, device.ID, tracking.FormatCSV, 0)
			Expect(err).NotTo(HaveOccurred())

			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(lines[0]).To(Equal("timestamp,lat,lng,speed"))
			Expect(lines[1]).To(HaveSuffix(",48.8566,2.3522,4.5"))
		})

		It("should squeeze later records into the first record's columns", func() {
			_, err := env.service.ReportPosition(ctx, tracking.PositionReport{
				DeviceID: device.ID,
				Lat:      ptr(10.0),
				Lng:      ptr(2.0),
				Speed:    ptr(3.0),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = env.service.ReportPosition(ctx, tracking.PositionReport{
				DeviceID: device.ID,
				Lat:      ptr(11.0),
				Lng:      ptr(2.0),
				Accuracy: ptr(5.0),
			})
			Expect(err).NotTo(HaveOccurred())

			out, err := env.service.ExportPositions(ctx, device.ID, tracking.FormatCSV, 0)
			Expect(err).NotTo(HaveOccurred())

			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[0]).To(Equal("timestamp,lat,lng,speed"))
			Expect(lines[1]).To(HaveSuffix(",10,2,3"))
			Expect(lines[2]).To(HaveSuffix(",11,2,"))
		})

		It("should honor the requested limit", func() {
			for _, lat := range []float64{10, 11, 12, 13} {
				_, err := env.service.ReportPosition(ctx, tracking.PositionReport{
					DeviceID: device.ID,
					Lat:      ptr(lat),
					Lng:      ptr(2.0),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			out, err := env.service.ExportPositions(ctx, device.ID, tracking.FormatCSV, 2)
			Expect(err).NotTo(HaveOccurred())

			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[1]).To(HaveSuffix(",12,2"))
			Expect(lines[2]).To(HaveSuffix(",13,2"))
		})
	})
})
