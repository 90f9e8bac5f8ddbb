package test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBrowser returns an http client behaving like a browser session:
// it keeps cookies and does not follow redirects, so the tests can
// assert on them
func (s *IntegrationTestSuite) newBrowser() *http.Client {
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *IntegrationTestSuite) postForm(client *http.Client, path string, form url.Values) *http.Response {
	resp, err := client.PostForm(serverEndpoint+path, form)
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationTestSuite) get(client *http.Client, path string) *http.Response {
	resp, err := client.Get(serverEndpoint + path)
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationTestSuite) readBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return string(body)
}

func (s *IntegrationTestSuite) register(client *http.Client, username, email, password string) *http.Response {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	if email != "" {
		form.Set("email", email)
	}
	return s.postForm(client, "/register", form)
}

func (s *IntegrationTestSuite) login(client *http.Client, username, password string) *http.Response {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	return s.postForm(client, "/login", form)
}

func (s *IntegrationTestSuite) TestRegisterLoginLogout() {
	t := s.T()
	browser := s.newBrowser()

	resp := s.register(browser, "e2e_alice", "e2e_alice@example.com", "s3cret!")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()

	// duplicate registration is rejected
	resp = s.register(browser, "e2e_alice", "other@example.com", "whatever")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// home without a session redirects to login
	resp = s.get(browser, "/")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()

	resp = s.login(browser, "e2e_alice", "s3cret!")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp.Body.Close()

	resp = s.get(browser, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := s.readBody(resp)
	assert.Contains(t, body, "e2e_alice")

	resp = s.get(browser, "/logout")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	resp = s.get(browser, "/")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()
}

func (s *IntegrationTestSuite) TestLoginFailures() {
	t := s.T()
	browser := s.newBrowser()

	resp := s.login(browser, "e2e_nobody", "whatever")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := s.readBody(resp)
	assert.Contains(t, body, "user does not exist")

	resp = s.register(browser, "e2e_bob", "e2e_bob@example.com", "hunter2")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	resp = s.login(browser, "e2e_bob", "not-hunter2")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body = s.readBody(resp)
	assert.Contains(t, body, "wrong password")
}

func (s *IntegrationTestSuite) TestAdminPanel() {
	t := s.T()

	admin := s.newBrowser()
	resp := s.register(admin, "e2e_boss", "e2e_boss@example.com", "s3cret!")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	// the admin area is closed until the flag is set in the db
	resp = s.login(admin, "e2e_boss", "s3cret!")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()
	resp = s.get(admin, "/admin")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	s.promoteToAdmin("e2e_boss")

	// re-login to get a session carrying the admin flag
	resp = s.get(admin, "/logout")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()
	resp = s.login(admin, "e2e_boss", "s3cret!")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	victim := s.newBrowser()
	resp = s.register(victim, "e2e_victim", "e2e_victim@example.com", "s3cret!")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	resp = s.get(admin, "/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := s.readBody(resp)
	assert.Contains(t, body, "e2e_boss")
	assert.Contains(t, body, "e2e_victim")

	victimID := s.userID("e2e_victim")
	resp = s.get(admin, "/admin/delete/"+victimID)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
	resp.Body.Close()

	resp = s.get(admin, "/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = s.readBody(resp)
	assert.NotContains(t, body, "e2e_victim")

	// the deleted user cannot log in anymore
	resp = s.login(victim, "e2e_victim", "s3cret!")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *IntegrationTestSuite) TestPasswordReset() {
	t := s.T()
	browser := s.newBrowser()

	resp := s.register(browser, "e2e_carol", "e2e_carol@example.com", "old-password")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	// unknown email gets rejected, nothing is sent
	form := url.Values{}
	form.Set("email", "e2e_unknown@example.com")
	resp = s.postForm(browser, "/forgot", form)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	form = url.Values{}
	form.Set("email", "e2e_carol@example.com")
	resp = s.postForm(browser, "/forgot", form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := s.readBody(resp)
	assert.Contains(t, body, "reset email sent")

	sent, ok := s.mailer.lastSent()
	require.True(t, ok)
	assert.Equal(t, "e2e_carol@example.com", sent.to)
	require.True(t, strings.HasPrefix(sent.link, serverEndpoint+"/reset/"))

	resetPath := strings.TrimPrefix(sent.link, serverEndpoint)

	// the form renders for the emailed token
	resp = s.get(browser, resetPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = s.readBody(resp)
	assert.Contains(t, body, `action="`+resetPath+`"`)

	form = url.Values{}
	form.Set("password", "new-password")
	resp = s.postForm(browser, resetPath, form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = s.readBody(resp)
	assert.Contains(t, body, "password updated")

	// the token is single-use
	resp = s.postForm(browser, resetPath, form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.login(browser, "e2e_carol", "old-password")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = s.login(browser, "e2e_carol", "new-password")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *IntegrationTestSuite) userID(username string) string {
	var id string
	err := s.DB.QueryRow(`SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	s.Require().NoError(err)
	return id
}
