package user_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/amirasaad/sandbank/pkg/domain/user"
	pkgtestutils "github.com/amirasaad/sandbank/pkg/testutils"
	"github.com/amirasaad/sandbank/webapi/testutils"
	userweb "github.com/amirasaad/sandbank/webapi/user"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

type UserTestSuite struct {
	testutils.E2ETestSuite
	testUser *user.User
	token    string
}

func (s *UserTestSuite) SetupTest() {
	s.testUser, _, s.token = s.CreateTestUser(pkgtestutils.WithBalance(1250))
}

func (s *UserTestSuite) TestGetMe() {
	resp := s.MakeRequest("GET", "/me", "", s.token)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	var me userweb.UserResponse
	s.Decode(resp, &me)
	s.Equal(s.testUser.Username, me.Username)
	s.Equal("12.50", me.Balance)
	s.False(me.HasPIN)
	s.False(me.IsAdmin)
}

func (s *UserTestSuite) TestUpdateMeVariants() {
	testCases := []struct {
		desc       string
		body       string
		wantStatus int
	}{
		{desc: "success", body: `{"names":"New Name"}`, wantStatus: fiber.StatusOK},
		{desc: "invalid body", body: `{"names":123}`, wantStatus: fiber.StatusBadRequest},
		{desc: "too long", body: fmt.Sprintf(`{"names":%q}`, strings.Repeat("a", 101)), wantStatus: fiber.StatusBadRequest},
	}

	for _, tc := range testCases {
		s.Run(tc.desc, func() {
			resp := s.MakeRequest("PUT", "/me", tc.body, s.token)
			defer resp.Body.Close() //nolint:errcheck
			s.Equal(tc.wantStatus, resp.StatusCode)
		})
	}
	s.Equal("New Name", pkgtestutils.User(s.T(), s.Uow, s.testUser.ID).Names)
}

func (s *UserTestSuite) TestSetPINVariants() {
	testCases := []struct {
		desc       string
		body       string
		wantStatus int
	}{
		{desc: "wrong password", body: `{"password":"nope","pin":"1234"}`, wantStatus: fiber.StatusUnauthorized},
		{desc: "short pin", body: `{"password":"password123","pin":"12"}`, wantStatus: fiber.StatusBadRequest},
		{desc: "letters", body: `{"password":"password123","pin":"abcd"}`, wantStatus: fiber.StatusBadRequest},
		{desc: "success", body: `{"password":"password123","pin":"4321"}`, wantStatus: fiber.StatusOK},
	}
	for _, tc := range testCases {
		s.Run(tc.desc, func() {
			resp := s.MakeRequest("PUT", "/me/pin", tc.body, s.token)
			defer resp.Body.Close() //nolint:errcheck
			s.Equal(tc.wantStatus, resp.StatusCode)
		})
	}
	s.NotEmpty(pkgtestutils.User(s.T(), s.Uow, s.testUser.ID).PINHash)
}

func (s *UserTestSuite) TestSuspendedUserTokenRejected() {
	_, err := s.App.UserService.ChangeStatus(s.T().Context(), s.Admin.ID, s.testUser.ID, user.StatusSuspended, "test")
	s.Require().NoError(err)
	resp := s.MakeRequest("GET", "/me", "", s.token)
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(fiber.StatusForbidden, resp.StatusCode)
}

func TestUserTestSuite(t *testing.T) {
	suite.Run(t, new(UserTestSuite))
}
