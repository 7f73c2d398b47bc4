package tracking

import "context"

// defaultLanguage is the language code written into a fresh profile.
const defaultLanguage = "fr"

// RegisterUser creates an account with the identity provider and writes
// the profile document with default settings. Returns the provider's
// opaque user identifier.
func (s *Service) RegisterUser(ctx context.Context, email, password, displayName string) (string, error) {
	if email == "" {
		return "", validationErrorf("email is required")
	}
	if password == "" {
		return "", validationErrorf("password is required")
	}

	uid, err := s.ident.Register(ctx, email, password, displayName)
	if err != nil {
		return "", upstreamErr(err)
	}

	now := s.timestamp()
	profile := User{
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		LastLogin:   now,
		Settings: Settings{
			Notifications: true,
			Language:      defaultLanguage,
		},
	}

	err = s.store.Set(ctx, "users/"+uid, profile)
	if err != nil {
		return "", upstreamErr(err)
	}

	s.logger.Info("user registered", "uid", uid)
	return uid, nil
}

// LoginUser verifies the credentials and stamps the profile's lastLogin.
func (s *Service) LoginUser(ctx context.Context, email, password string) (string, error) {
	if email == "" {
		return "", validationErrorf("email is required")
	}
	if password == "" {
		return "", validationErrorf("password is required")
	}

	uid, err := s.ident.Login(ctx, email, password)
	if err != nil {
		return "", upstreamErr(err)
	}

	err = s.store.Set(ctx, "users/"+uid+"/lastLogin", s.timestamp())
	if err != nil {
		return "", upstreamErr(err)
	}

	s.logger.Info("user logged in", "uid", uid)
	return uid, nil
}

// LogoutUser ends the provider-side session.
func (s *Service) LogoutUser(ctx context.Context) error {
	if err := s.ident.Logout(ctx); err != nil {
		return upstreamErr(err)
	}
	return nil
}

// ResetPassword starts the identity provider's credential reset flow.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if email == "" {
		return validationErrorf("email is required")
	}
	if err := s.ident.ResetPassword(ctx, email); err != nil {
		return upstreamErr(err)
	}
	return nil
}
