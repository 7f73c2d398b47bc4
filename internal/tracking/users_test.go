package tracking_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"geotrack.dev/geotrack/internal/tracking"
)

var _ = Describe("Users", func() {
	var (
		env *testEnv
		ctx context.Context
	)

	BeforeEach(func() {
		env = newTestEnv()
		ctx = context.Background()
	})

	Describe("RegisterUser", func() {
		It("should create the profile with default settings", func() {
			uid, err := env.service.RegisterUser(ctx, "alice@example.com", "secret", "Alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(uid).NotTo(BeEmpty())

			var profile tracking.User
			found, err := env.store.Get(ctx, "users/"+uid, &profile)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(profile.Email).To(Equal("alice@example.com"))
			Expect(profile.DisplayName).To(Equal("Alice"))
			Expect(profile.Settings.Notifications).To(BeTrue())
			Expect(profile.Settings.Language).To(Equal("fr"))
			Expect(profile.CreatedAt).NotTo(BeEmpty())
			Expect(profile.LastLogin).To(Equal(profile.CreatedAt))
		})

		It("should reject missing email", func() {
			_, err := env.service.RegisterUser(ctx, "", "secret", "Alice")
			Expect(tracking.IsValidation(err)).To(BeTrue())
		})

		It("should pass the provider error through verbatim", func() {
			_, err := env.service.RegisterUser(ctx, "alice@example.com", "secret", "Alice")
			Expect(err).NotTo(HaveOccurred())

			_, err = env.service.RegisterUser(ctx, "alice@example.com", "other", "Alice")
			Expect(err).To(HaveOccurred())
			Expect(tracking.IsUpstream(err)).To(BeTrue())
			Expect(err.Error()).To(Equal("EMAIL_EXISTS"))
		})
	})

	Describe("LoginUser", func() {
		It("should stamp lastLogin", func() {
			uid, err := env.service.RegisterUser(ctx, "alice@example.com", "secret", "Alice")
			Expect(err).NotTo(HaveOccurred())

			var before tracking.User
			_, err = env.store.Get(ctx, "users/"+uid, &before)
			Expect(err).NotTo(HaveOccurred())

			loggedIn, err := env.service.LoginUser(ctx, "alice@example.com", "secret")
			Expect(err).NotTo(HaveOccurred())
			Expect(loggedIn).To(Equal(uid))

			var after tracking.User
			_, err = env.store.Get(ctx, "users/"+uid, &after)
			Expect(err).NotTo(HaveOccurred())
			Expect(after.LastLogin > before.LastLogin).To(BeTrue())
		})

		It("should reject bad credentials verbatim", func() {
			_, err := env.service.LoginUser(ctx, "nobody@example.com", "nope")
			Expect(tracking.IsUpstream(err)).To(BeTrue())
			Expect(err.Error()).To(Equal("INVALID_LOGIN_CREDENTIALS"))
		})
	})

	Describe("ResetPassword", func() {
		It("should forward the email to the provider", func() {
			Expect(env.service.ResetPassword(ctx, "alice@example.com")).To(Succeed())
			Expect(env.ident.ResetCalls).To(ConsistOf("alice@example.com"))
		})

		It("should reject a missing email", func() {
			err := env.service.ResetPassword(ctx, "")
			Expect(tracking.IsValidation(err)).To(BeTrue())
		})
	})

	Describe("LogoutUser", func() {
		It("should invoke the provider", func() {
			Expect(env.service.LogoutUser(ctx)).To(Succeed())
			Expect(env.ident.LogoutCalls).To(Equal(1))
		})
	})
})
