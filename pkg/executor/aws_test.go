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
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEC2 struct {
	zones []ec2types.AvailabilityZone
	err   error
	input *ec2.DescribeAvailabilityZonesInput
}

func (f *fakeEC2) DescribeAvailabilityZones(_ context.Context, in *ec2.DescribeAvailabilityZonesInput, _ ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.DescribeAvailabilityZonesOutput{AvailabilityZones: f.zones}, nil
}

func zone(name, zoneType string) ec2types.AvailabilityZone {
	return ec2types.AvailabilityZone{ZoneName: aws.String(name), ZoneType: aws.String(zoneType)}
}

func TestAvailabilityZones(t *testing.T) {
	tests := []struct {
		name    string
		zones   []ec2types.AvailabilityZone
		limit   int
		want    []string
		wantErr string
	}{
		{
			name:  "sorted and capped",
			zones: []ec2types.AvailabilityZone{zone("ap-southeast-1c", "availability-zone"), zone("ap-southeast-1a", "availability-zone"), zone("ap-southeast-1b", "availability-zone")},
			limit: 2,
			want:  []string{"ap-southeast-1a", "ap-southeast-1b"},
		},
		{
			name:  "local zones are ignored",
			zones: []ec2types.AvailabilityZone{zone("us-west-2-lax-1a", "local-zone"), zone("us-west-2a", "availability-zone")},
			limit: 2,
			want:  []string{"us-west-2a"},
		},
		{
			name:  "no limit",
			zones: []ec2types.AvailabilityZone{zone("eu-west-1b", "availability-zone"), zone("eu-west-1a", "availability-zone")},
			want:  []string{"eu-west-1a", "eu-west-1b"},
		},
		{
			name:    "none available",
			zones:   nil,
			limit:   2,
			wantErr: "no availability zones",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeEC2{zones: tt.zones}
			got, err := AvailabilityZones(context.Background(), client, tt.limit)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, client.input.Filters, 1)
			assert.Equal(t, []string{"available"}, client.input.Filters[0].Values)
		})
	}
}

func TestAvailabilityZones_Error(t *testing.T) {
	_, err := AvailabilityZones(context.Background(), &fakeEC2{err: errors.New("denied")}, 2)
	assert.ErrorContains(t, err, "describe availability zones: denied")
}

type fakeSTS struct{}

func (fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/deployer"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}, nil
}

func TestCallerIdentity(t *testing.T) {
	id, err := CallerIdentity(context.Background(), fakeSTS{})
	require.NoError(t, err)
	assert.Equal(t, Identity{
		Account: "123456789012",
		ARN:     "arn:aws:iam::123456789012:user/deployer",
		UserID:  "AIDAEXAMPLE",
	}, id)
}
