package main

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/jobsensor/internal/domain/jobstatus"
)

// feedFile is the YAML layout statusfeed reads.
type feedFile struct {
	Records []feedRecord `yaml:"records"`
}

type feedRecord struct {
	ID            string         `yaml:"id"`
	User          string         `yaml:"user"`
	VO            string         `yaml:"vo"`
	ServiceURL    string         `yaml:"serviceUrl"`
	WorkerNode    *string        `yaml:"workerNode"`
	CorrelationID *string        `yaml:"correlationId"`
	History       []feedSnapshot `yaml:"history"`
}

type feedSnapshot struct {
	Status        string     `yaml:"status"`
	Timestamp     *time.Time `yaml:"timestamp"`
	ExitCode      *string    `yaml:"exitCode"`
	FailureReason *string    `yaml:"failureReason"`
	Description   *string    `yaml:"description"`
}

// readFeed parses r into job records. Snapshots without a timestamp are
// stamped with now plus their position so that ordering survives.
func readFeed(r io.Reader, now time.Time) ([]*jobstatus.JobRecord, error) {
	var f feedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	out := make([]*jobstatus.JobRecord, 0, len(f.Records))
	for i, fr := range f.Records {
		rec := &jobstatus.JobRecord{
			ID:                  fr.ID,
			UserID:              fr.User,
			VirtualOrganization: fr.VO,
			ServiceURL:          fr.ServiceURL,
			WorkerNode:          fr.WorkerNode,
			CorrelationID:       fr.CorrelationID,
			StatusHistory:       make([]*jobstatus.JobStatusSnapshot, 0, len(fr.History)),
		}
		for j, fs := range fr.History {
			st, err := jobstatus.ParseStatusType(fs.Status)
			if err != nil {
				return nil, fmt.Errorf("record %d (%s) snapshot %d: %w", i, fr.ID, j, err)
			}
			ts := now.Add(time.Duration(j) * time.Millisecond)
			if fs.Timestamp != nil {
				ts = *fs.Timestamp
			}
			rec.StatusHistory = append(rec.StatusHistory, &jobstatus.JobStatusSnapshot{
				Name:          st.String(),
				Type:          st,
				Timestamp:     ts,
				ExitCode:      fs.ExitCode,
				FailureReason: fs.FailureReason,
				Description:   fs.Description,
			})
		}
		out = append(out, rec)
	}
	return out, nil
}
