// realm/validate.go
package realm

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

func (c *Config) Validate() error {
	if err := c.Realm.validate(); err != nil {
		return err
	}
	return c.validateRoutes()
}

func (r *Realm) validate() error {
	iss := strings.TrimSpace(r.Issuer)
	if iss == "" {
		return errors.New("realm: issuer required")
	}
	u, err := url.Parse(iss)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("realm: issuer %q must be an absolute URL", r.Issuer)
	}
	if j := strings.TrimSpace(r.JWKSURL); j != "" {
		ju, err := url.Parse(j)
		if err != nil || !ju.IsAbs() || ju.Host == "" {
			return fmt.Errorf("realm: jwks_url %q must be an absolute URL", r.JWKSURL)
		}
	}
	if len(r.Audiences) == 0 {
		return errors.New("realm: at least one audience required")
	}
	for i, a := range r.Audiences {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("realm: audience %d is empty", i)
		}
	}
	if r.RefreshIntervalSeconds < 0 {
		return errors.New("realm: refresh_interval_seconds must be >= 0")
	}
	if r.ClockSkewSeconds < 0 {
		return errors.New("realm: clock_skew_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateRoutes() error {
	for i := range c.Routes {
		rt := &c.Routes[i]
		if !strings.HasPrefix(rt.Path, "/") {
			return fmt.Errorf("route %d: path %q must start with '/'", i, rt.Path)
		}
		rt.Method = strings.ToUpper(strings.TrimSpace(rt.Method))
		switch rt.Method {
		case "":
			rt.Method = http.MethodGet
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
			http.MethodPatch, http.MethodHead, http.MethodOptions:
		default:
			return fmt.Errorf("route %d (%s): unknown method %q", i, rt.Path, rt.Method)
		}
		if strings.TrimSpace(rt.Handler) == "" {
			rt.Handler = "whoami"
		}
		for client, roles := range rt.Guard.ClientRoles {
			if strings.TrimSpace(client) == "" {
				return fmt.Errorf("route %d (%s): client_roles has an empty client id", i, rt.Path)
			}
			if len(roles) == 0 {
				return fmt.Errorf("route %d (%s): client_roles[%s] is empty", i, rt.Path, client)
			}
		}
	}
	return nil
}
