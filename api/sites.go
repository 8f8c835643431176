package api

import (
	"github.com/stacman/stacman"
	"github.com/stacman/stacman/types"
)

type Sites struct {
	resource
}

func NewSites(client *stacman.Client) *Sites {
	return &Sites{resource{client: client}}
}

// GetAll lists the network's sites. The method takes no site parameter.
func (s *Sites) GetAll(page, pageSize *int, filter string) (*stacman.Future[types.Site], error) {
	if err := ValidatePaging(page, pageSize); err != nil {
		return nil, err
	}

	b := s.builder("sites").
		Add("page", page).
		Add("pagesize", pageSize).
		Add("filter", filter)
	return submit[types.Site](s.resource, b, KeySites), nil
}

type Info struct {
	resource
}

func NewInfo(client *stacman.Client) *Info {
	return &Info{resource{client: client}}
}

// Get returns the statistics of one site. An empty site uses the client's.
func (i *Info) Get(site, filter string) (*stacman.Future[types.Info], error) {
	if site == "" {
		site = i.site()
	}
	if err := ValidateString(site, "site"); err != nil {
		return nil, err
	}

	b := i.builder("info").Add("site", site).Add("filter", filter)
	return submit[types.Info](i.resource, b, KeyInfo), nil
}
