package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// UserIndex keeps a searchable copy of user profiles in Elasticsearch.
// Password material is never indexed.
type UserIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{ES: es, Index: index}
}

func (x *UserIndex) enabled() bool { return x != nil && x.ES != nil && x.Index != "" }

func profileDocument(u *entity.User) map[string]any {
	p := u.Person
	return map[string]any{
		"id":           u.ID.String(),
		"username":     u.Username,
		"role":         u.Role.String(),
		"firstName":    p.FirstName,
		"lastName":     p.LastName,
		"personalCode": p.PersonalCodeValue(),
		"phoneNumber":  p.PhoneNumber,
		"email":        p.Email,
		"city":         p.Address.City,
		"street":       p.Address.Street,
		"updatedAt":    u.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// IndexUser upserts the profile document of u.
func (x *UserIndex) IndexUser(ctx context.Context, u *entity.User) error {
	if !x.enabled() {
		return nil
	}
	b, err := json.Marshal(profileDocument(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: u.ID.String(), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// DeleteUser removes the document; a missing document is not an error.
func (x *UserIndex) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if !x.enabled() {
		return nil
	}
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: id.String()}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

// SearchUsers performs a multi_match search over names, username, email and city.
func (x *UserIndex) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if !x.enabled() {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^3", "email^2", "firstName", "lastName", "city"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		if res.StatusCode == 404 {
			return []map[string]any{}, nil
		}
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
