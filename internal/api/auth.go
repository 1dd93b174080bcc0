package api

import (
	"context"
	"fmt"

	"github.com/laurateck/examdesk/internal/model"
)

type studentLoginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	CollegeName    string `json:"college_name"`
	CollegePasskey string `json:"college_passkey"`
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// StudentLogin authenticates a student against the shared login endpoint and
// attaches the returned token to the client.
func (c *Client) StudentLogin(ctx context.Context, email, password, collegeName, collegePasskey string) (model.Identity, error) {
	var resp loginResponse
	err := c.doJSON(ctx, "POST", "/auth/login", "", studentLoginRequest{
		Email:          email,
		Password:       password,
		CollegeName:    collegeName,
		CollegePasskey: collegePasskey,
	}, &resp)
	if err != nil {
		return model.Identity{}, fmt.Errorf("student login: %w", err)
	}

	c.SetStudentToken(resp.AccessToken)
	return model.Identity{Email: email, College: collegeName, Token: resp.AccessToken}, nil
}

// AdminLogin authenticates an admin (same endpoint, no college fields) and
// attaches the returned token to the client.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (model.Identity, error) {
	var resp loginResponse
	err := c.doJSON(ctx, "POST", "/auth/login", "", adminLoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return model.Identity{}, fmt.Errorf("admin login: %w", err)
	}

	c.SetAdminToken(resp.AccessToken)
	return model.Identity{Email: email, Token: resp.AccessToken}, nil
}

// ListPublicColleges returns the college list used to populate the login
// selector. No auth required.
func (c *Client) ListPublicColleges(ctx context.Context) ([]model.College, error) {
	var colleges []model.College
	if err := c.doJSON(ctx, "GET", "/admin/colleges", "", nil, &colleges); err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	return colleges, nil
}
