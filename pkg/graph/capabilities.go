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

package graph

import (
	"fmt"
	"slices"
)

// Capability names the set of storage permissions a workload needs.
type Capability string

const (
	// CapabilityApplication is the form application itself.
	CapabilityApplication Capability = "application"
	// CapabilityScanner is the virus scanner moving uploads from quarantine
	// to clean storage.
	CapabilityScanner Capability = "scanner"
)

// BucketRole is the purpose a bucket serves for a capability. Principals
// bind each role their capability needs to a declared bucket through the
// "bucketBindings" config.
type BucketRole string

const (
	RoleAttachment   BucketRole = "attachment"
	RolePaymentProof BucketRole = "paymentProof"
	RoleImage        BucketRole = "image"
	RoleLogo         BucketRole = "logo"
	RoleQuarantine   BucketRole = "quarantine"
	RoleClean        BucketRole = "clean"
)

// aclActions only take effect on buckets whose objects carry ACLs. They are
// dropped for buckets with ACLs disabled.
var aclActions = []string{"s3:PutObjectAcl"}

type capabilityEntry struct {
	role    BucketRole
	actions []string
}

var capabilityTable = map[Capability][]capabilityEntry{
	CapabilityApplication: {
		{RoleAttachment, []string{"s3:PutObject", "s3:GetObject", "s3:DeleteObject", "s3:PutObjectAcl"}},
		{RoleImage, []string{"s3:PutObject", "s3:GetObject", "s3:DeleteObject", "s3:PutObjectAcl"}},
		{RoleLogo, []string{"s3:PutObject", "s3:GetObject", "s3:DeleteObject", "s3:PutObjectAcl"}},
		{RolePaymentProof, []string{"s3:PutObject", "s3:GetObject"}},
		{RoleQuarantine, []string{"s3:PutObject"}},
		{RoleClean, []string{"s3:GetObjectVersion"}},
	},
	CapabilityScanner: {
		{RoleQuarantine, []string{"s3:GetObject", "s3:GetObjectTagging", "s3:GetObjectVersion", "s3:DeleteObject", "s3:DeleteObjectVersion"}},
		{RoleClean, []string{"s3:PutObject", "s3:PutObjectTagging"}},
	},
}

// Roles returns the bucket roles capability c needs, in table order.
func (c Capability) Roles() []BucketRole {
	entries := capabilityTable[c]
	roles := make([]BucketRole, len(entries))
	for i, e := range entries {
		roles[i] = e.role
	}
	return roles
}

func (c Capability) valid() bool {
	_, ok := capabilityTable[c]
	return ok
}

// boundBucket is the resolved state of a bucket a principal is bound to.
type boundBucket struct {
	arn         string
	aclsEnabled bool
}

// grantsFor derives the grants of principal from its capability. Grants
// follow table order, then action order.
func grantsFor(principal string, c Capability, buckets map[BucketRole]boundBucket) ([]PolicyGrant, error) {
	entries, ok := capabilityTable[c]
	if !ok {
		return nil, fmt.Errorf("unknown capability %q", c)
	}
	var grants []PolicyGrant
	for _, e := range entries {
		b, ok := buckets[e.role]
		if !ok {
			return nil, fmt.Errorf("capability %q needs a %q bucket", c, e.role)
		}
		actions := slices.Clone(e.actions)
		if !b.aclsEnabled {
			actions = slices.DeleteFunc(actions, func(a string) bool {
				return slices.Contains(aclActions, a)
			})
		}
		grants = append(grants, PolicyGrant{
			Principal: principal,
			Actions:   actions,
			Resource:  b.arn + "/*",
			KeyScope:  "*",
		})
	}
	return grants, nil
}
