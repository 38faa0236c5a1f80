// Copyright 2025 The Kubernetes Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudcontrol"
	cctypes "github.com/aws/aws-sdk-go-v2/service/cloudcontrol/types"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/opengovsg/formsg-on-cdk/pkg/graph"
	"github.com/opengovsg/formsg-on-cdk/pkg/metadata"
)

// StageProvision names provider failures in RetriableError.
const StageProvision = "provision"

// CloudControlAPI is the subset of the Cloud Control client the
// provisioner uses.
type CloudControlAPI interface {
	CreateResource(ctx context.Context, in *cloudcontrol.CreateResourceInput, opts ...func(*cloudcontrol.Options)) (*cloudcontrol.CreateResourceOutput, error)
	DeleteResource(ctx context.Context, in *cloudcontrol.DeleteResourceInput, opts ...func(*cloudcontrol.Options)) (*cloudcontrol.DeleteResourceOutput, error)
	GetResource(ctx context.Context, in *cloudcontrol.GetResourceInput, opts ...func(*cloudcontrol.Options)) (*cloudcontrol.GetResourceOutput, error)
	GetResourceRequestStatus(ctx context.Context, in *cloudcontrol.GetResourceRequestStatusInput, opts ...func(*cloudcontrol.Options)) (*cloudcontrol.GetResourceRequestStatusOutput, error)
}

// CloudControlProvisioner provisions resources through the AWS Cloud
// Control API. Each kind maps to one or more CloudFormation resource types,
// created in order and deleted in reverse.
type CloudControlProvisioner struct {
	client       CloudControlAPI
	region       string
	log          logr.Logger
	pollInterval time.Duration
	timeout      time.Duration
	tags         metadata.Tagger
}

// CloudControlOption configures a CloudControlProvisioner.
type CloudControlOption func(*CloudControlProvisioner)

// WithPolling sets how often request status is polled, and for how long.
func WithPolling(interval, timeout time.Duration) CloudControlOption {
	return func(p *CloudControlProvisioner) {
		p.pollInterval = interval
		p.timeout = timeout
	}
}

// WithProvisionerLogger sets the logger.
func WithProvisionerLogger(log logr.Logger) CloudControlOption {
	return func(p *CloudControlProvisioner) { p.log = log }
}

// WithTags adds tags to every taggable resource, next to the ownership
// and node tags that are always set.
func WithTags(t metadata.Tagger) CloudControlOption {
	return func(p *CloudControlProvisioner) {
		if merged, err := p.tags.Merge(t); err == nil {
			p.tags = merged
		} else {
			p.log.Error(err, "ignoring tags")
		}
	}
}

// NewCloudControlProvisioner returns a provisioner using client in region.
func NewCloudControlProvisioner(client CloudControlAPI, region string, opts ...CloudControlOption) *CloudControlProvisioner {
	p := &CloudControlProvisioner{
		client:       client,
		region:       region,
		log:          logr.Discard(),
		pollInterval: 5 * time.Second,
		timeout:      45 * time.Minute,
		tags:         metadata.NewMetaTagger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewCloudControlProvisionerFromConfig builds the Cloud Control client from
// cfg.
func NewCloudControlProvisionerFromConfig(cfg aws.Config, opts ...CloudControlOption) *CloudControlProvisioner {
	return NewCloudControlProvisioner(cloudcontrol.NewFromConfig(cfg), cfg.Region, opts...)
}

// identifierKey is the attribute recording the identifier of a step.
func identifierKey(step string) string { return "cloudcontrol:" + step }

func (p *CloudControlProvisioner) Create(ctx context.Context, r *Resource) (map[string]string, error) {
	steps, err := p.plan(r)
	if err != nil {
		return nil, err
	}
	attrs := map[string]string{}
	for i, st := range steps {
		if err := p.createStep(ctx, r, st, attrs); err != nil {
			p.rollback(ctx, r, steps[:i], attrs)
			return nil, err
		}
	}
	return attrs, nil
}

func (p *CloudControlProvisioner) Delete(ctx context.Context, r *Resource) error {
	steps, err := p.plan(r)
	if err != nil {
		return err
	}
	for i := len(steps) - 1; i >= 0; i-- {
		if err := p.deleteStep(ctx, r, steps[i], r.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func (p *CloudControlProvisioner) plan(r *Resource) ([]step, error) {
	planner, ok := planners[r.Kind]
	if !ok {
		return nil, fmt.Errorf("kind %q is not supported by Cloud Control", r.Kind)
	}
	return planner(p.region, r)
}

func (p *CloudControlProvisioner) createStep(ctx context.Context, r *Resource, st step, attrs map[string]string) error {
	props, err := st.properties(r, attrs)
	if err != nil {
		return fmt.Errorf("%s: %w", st.name, err)
	}
	if taggableTypes.Has(st.typeName) {
		tags, err := p.tags.Merge(metadata.NewNodeTagger(r.DeploymentID, r.ID, r.Kind))
		if err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
		props["Tags"] = metadata.ResourceTags(tags)
	}
	desired, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("%s: %w", st.name, err)
	}
	out, err := p.client.CreateResource(ctx, &cloudcontrol.CreateResourceInput{
		TypeName:     aws.String(st.typeName),
		DesiredState: aws.String(string(desired)),
		ClientToken:  aws.String(clientToken(r, st.name)),
	})
	if err != nil {
		return classify(r.ID, st.typeName, err)
	}
	event, err := p.await(ctx, r.ID, out.ProgressEvent)
	if err != nil {
		return err
	}
	identifier := aws.ToString(event.Identifier)
	attrs[identifierKey(st.name)] = identifier
	p.log.V(1).Info("created", "id", r.ID, "type", st.typeName, "identifier", identifier)

	if len(st.outputs) == 0 {
		return nil
	}
	observed, err := p.properties(ctx, st.typeName, identifier)
	if err != nil {
		return classify(r.ID, st.typeName, err)
	}
	for attr, prop := range st.outputs {
		if prop == "" {
			attrs[attr] = identifier
			continue
		}
		v, ok := observed[prop]
		if !ok {
			return fmt.Errorf("%s: property %s missing from %s", r.ID, prop, st.typeName)
		}
		attrs[attr] = fmt.Sprint(v)
	}
	return nil
}

func (p *CloudControlProvisioner) deleteStep(ctx context.Context, r *Resource, st step, attrs map[string]string) error {
	identifier := attrs[identifierKey(st.name)]
	if identifier == "" {
		return nil
	}
	out, err := p.client.DeleteResource(ctx, &cloudcontrol.DeleteResourceInput{
		TypeName:   aws.String(st.typeName),
		Identifier: aws.String(identifier),
	})
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return classify(r.ID, st.typeName, err)
	}
	if _, err := p.await(ctx, r.ID, out.ProgressEvent); err != nil && !isNotFound(err) {
		return err
	}
	p.log.V(1).Info("deleted", "id", r.ID, "type", st.typeName, "identifier", identifier)
	return nil
}

// rollback deletes the steps of a partially created resource.
func (p *CloudControlProvisioner) rollback(ctx context.Context, r *Resource, created []step, attrs map[string]string) {
	for i := len(created) - 1; i >= 0; i-- {
		if err := p.deleteStep(ctx, r, created[i], attrs); err != nil {
			p.log.Error(err, "rollback failed", "id", r.ID, "type", created[i].typeName)
		}
	}
}

// await polls the request behind event until it settles.
func (p *CloudControlProvisioner) await(ctx context.Context, id string, event *cctypes.ProgressEvent) (*cctypes.ProgressEvent, error) {
	if event == nil {
		return nil, fmt.Errorf("%s: no progress event returned", id)
	}
	current := event
	err := wait.PollUntilContextTimeout(ctx, p.pollInterval, p.timeout, true, func(ctx context.Context) (bool, error) {
		switch current.OperationStatus {
		case cctypes.OperationStatusSuccess:
			return true, nil
		case cctypes.OperationStatusFailed, cctypes.OperationStatusCancelComplete:
			return false, progressError(id, current)
		}
		out, err := p.client.GetResourceRequestStatus(ctx, &cloudcontrol.GetResourceRequestStatusInput{
			RequestToken: current.RequestToken,
		})
		if err != nil {
			return false, classify(id, aws.ToString(current.TypeName), err)
		}
		current = out.ProgressEvent
		switch current.OperationStatus {
		case cctypes.OperationStatusSuccess:
			return true, nil
		case cctypes.OperationStatusFailed, cctypes.OperationStatusCancelComplete:
			return false, progressError(id, current)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (p *CloudControlProvisioner) properties(ctx context.Context, typeName, identifier string) (map[string]any, error) {
	out, err := p.client.GetResource(ctx, &cloudcontrol.GetResourceInput{
		TypeName:   aws.String(typeName),
		Identifier: aws.String(identifier),
	})
	if err != nil {
		return nil, err
	}
	props := map[string]any{}
	if out.ResourceDescription == nil || out.ResourceDescription.Properties == nil {
		return props, nil
	}
	if err := json.Unmarshal([]byte(*out.ResourceDescription.Properties), &props); err != nil {
		return nil, fmt.Errorf("decode %s properties: %w", typeName, err)
	}
	return props, nil
}

// clientToken is stable per deployment, resource and step, so a retried
// create is not applied twice.
func clientToken(r *Resource, step string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(r.DeploymentID+"/"+r.ID+"/"+step)).String()
}

// ProviderError is a failed Cloud Control request.
type ProviderError struct {
	ID       string
	TypeName string
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("resource %q (%s): %s: %s", e.ID, e.TypeName, e.Code, e.Message)
}

// Error codes of the Cloud Control API and of resource handlers.
var retriableCodes = map[string]bool{
	"ThrottlingException":             true,
	"ConcurrentOperationException":    true,
	"ServiceInternalErrorException":   true,
	"NetworkFailureException":         true,
	"HandlerInternalFailureException": true,
	"Throttling":                      true,
	"ServiceInternalError":            true,
	"NetworkFailure":                  true,
	"ResourceConflict":                true,
}

var notFoundCodes = map[string]bool{
	"ResourceNotFoundException": true,
	"NotFound":                  true,
}

func progressError(id string, event *cctypes.ProgressEvent) error {
	err := &ProviderError{
		ID:       id,
		TypeName: aws.ToString(event.TypeName),
		Code:     string(event.ErrorCode),
		Message:  aws.ToString(event.StatusMessage),
	}
	if retriableCodes[err.Code] {
		return graph.Retriable(StageProvision, err)
	}
	return err
}

// classify wraps SDK errors, marking throttling and transient provider
// failures retriable.
func classify(id, typeName string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	pe := &ProviderError{ID: id, TypeName: typeName, Code: apiErr.ErrorCode(), Message: apiErr.ErrorMessage()}
	if retriableCodes[pe.Code] {
		return graph.Retriable(StageProvision, pe)
	}
	return pe
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return notFoundCodes[pe.Code]
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && notFoundCodes[apiErr.ErrorCode()]
}
