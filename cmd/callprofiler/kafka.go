package main

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/callprofiler/callprofiler/internal/aggregate"
	"github.com/callprofiler/callprofiler/internal/trace"
)

type (
	// FunctionsKafkaMessage is the message we send to Kafka so downstream
	// consumers can track function timings across traces.
	FunctionsKafkaMessage struct {
		Environment    string                   `json:"environment,omitempty"`
		TraceID        string                   `json:"trace_id"`
		Name           string                   `json:"name"`
		OrganizationID uint64                   `json:"organization_id"`
		ProjectID      uint64                   `json:"project_id"`
		DurationNS     uint64                   `json:"duration_ns"`
		Functions      []aggregate.FunctionStat `json:"functions"`
	}
)

func (env *environment) buildFunctionsKafkaMessage(r trace.Report) FunctionsKafkaMessage {
	return FunctionsKafkaMessage{
		Environment:    env.config.Environment,
		TraceID:        r.TraceID,
		Name:           r.Name,
		OrganizationID: r.OrganizationID,
		ProjectID:      r.ProjectID,
		DurationNS:     r.DurationNS,
		Functions:      r.Functions,
	}
}

func (env *environment) postFunctionsToKafka(ctx context.Context, r trace.Report) error {
	if len(r.Functions) == 0 {
		return nil
	}
	b, err := json.Marshal(env.buildFunctionsKafkaMessage(r))
	if err != nil {
		return err
	}
	return env.functionsWriter.WriteMessages(ctx, kafka.Message{
		Value: b,
	})
}
