// Command smoke drives an end-to-end pass through a running instance:
// sign up, create a subject and group, enter scores, and verify the
// derived columns come back with the expected grade.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type client struct {
	base string
	http *http.Client
}

func main() {
	var (
		base    string
		timeout time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}
	c := &client{base: base, http: &http.Client{Timeout: timeout, Jar: jar}}

	username := fmt.Sprintf("smoke-%d", time.Now().UnixNano())
	steps := []struct {
		name string
		run  func() error
	}{
		{"sign up", func() error {
			return c.post("/auth/signup", map[string]any{
				"username": username, "password": "smoke-pass", "confirm_password": "smoke-pass",
			}, nil)
		}},
		{"create subject", func() error {
			return c.post("/subjects", map[string]any{"name": "Smoke Math"}, &subject)
		}},
		{"create group", func() error {
			return c.post(fmt.Sprintf("/subjects/%s/groups", subject.ID), map[string]any{"name": "Period S"}, &group)
		}},
		{"add score column", func() error {
			return c.post(fmt.Sprintf("/groups/%s/columns", group.ID), map[string]any{
				"name": "Exam", "type": "score", "position": 0,
			}, &examCol)
		}},
		{"add grade column", func() error {
			return c.post(fmt.Sprintf("/groups/%s/columns", group.ID), map[string]any{
				"name": "Final", "type": "grade", "source_columns": []string{examCol.ID}, "position": 1,
			}, &gradeCol)
		}},
		{"add learner", func() error {
			return c.post(fmt.Sprintf("/groups/%s/learners", group.ID), map[string]any{
				"learner_id": "S001", "name": "Smoke Tester",
			}, &learner)
		}},
		{"enter score", func() error {
			return c.put(fmt.Sprintf("/groups/%s/scores", group.ID), map[string]any{
				"learner_id": "S001", "column_id": examCol.ID, "value": "95",
			})
		}},
		{"verify grade", verifyGrade(c)},
	}

	failed := 0
	for _, step := range steps {
		if err := step.run(); err != nil {
			failed++
			fmt.Printf("FAIL  %-20s %v\n", step.name, err)
			continue
		}
		fmt.Printf("OK    %s\n", step.name)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

type created struct {
	ID string `json:"id"`
}

var (
	subject  created
	group    created
	examCol  created
	gradeCol created
	learner  created
)

func verifyGrade(c *client) func() error {
	return func() error {
		var got struct {
			Learners []struct {
				LearnerID string                     `json:"learner_id"`
				Scores    map[string]json.RawMessage `json:"scores"`
			} `json:"learners"`
		}
		if err := c.get(fmt.Sprintf("/groups/%s", group.ID), &got); err != nil {
			return err
		}
		for _, l := range got.Learners {
			if l.LearnerID != "S001" {
				continue
			}
			raw, ok := l.Scores[gradeCol.ID]
			if !ok {
				return fmt.Errorf("grade column %s not materialized", gradeCol.ID)
			}
			if !bytes.Contains(raw, []byte(`"A"`)) {
				return fmt.Errorf("expected grade A for 95, got %s", raw)
			}
			return nil
		}
		return fmt.Errorf("learner S001 not found in group")
	}
}

func (c *client) post(path string, payload any, out any) error {
	return c.do(http.MethodPost, path, payload, out)
}

func (c *client) put(path string, payload any) error {
	return c.do(http.MethodPut, path, payload, nil)
}

func (c *client) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *client) do(method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: status %d, undecodable body", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		if env.Error != nil {
			return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
