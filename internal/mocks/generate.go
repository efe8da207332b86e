// Package mocks provides mock implementations for testing the session flows.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the ports interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockGW := mocks.NewMockAuthGateway(ctrl)
//	mockGW.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(result, nil)
package mocks

// Generate mock for AuthGateway interface from internal/ports package.
// This creates MockAuthGateway with methods for all AuthGateway interface methods:
// Login, CheckSession, SwitchOrganization, GetUserOrganizations, Logout, CreateFirstTimeOrganization
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=auth_gateway_mock.go github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports AuthGateway
