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

package topology

import "github.com/opengovsg/formsg-on-cdk/pkg/graph"

const (
	IDAttachmentBucket   = "attachmentBucket"
	IDPaymentProofBucket = "paymentProofBucket"
	IDImageBucket        = "imageBucket"
	IDLogoBucket         = "logoBucket"
	IDStaticAssetsBucket = "staticAssetsBucket"
	IDQuarantineBucket   = "quarantineBucket"
	IDCleanBucket        = "cleanBucket"
)

// Object ownership settings. Only ObjectWriter buckets keep object ACLs.
const (
	ownershipEnforced     = "BucketOwnerEnforced"
	ownershipObjectWriter = "ObjectWriter"
)

// Public access blocks.
const (
	blockAll  = "BLOCK_ALL"
	blockACLs = "BLOCK_ACLS"
	blockNone = "NONE"
)

// BucketProfile is the fixed access profile of one bucket.
type BucketProfile struct {
	ID string
	// LogicalName is the bucket name before the suffix is appended.
	LogicalName string
	// EnvKey is the application environment variable carrying the name.
	EnvKey string
	// Role binds the bucket to the capability table, if any.
	Role graph.BucketRole

	PublicRead         bool
	PublicWriteActions []string
	ObjectOwnership    string
	BlockPublicAccess  string
	// CORS allows GET and POST from the public URL.
	CORS bool
}

var bucketProfiles = []BucketProfile{
	{
		ID: IDAttachmentBucket, LogicalName: "form-attachment-bucket", EnvKey: "ATTACHMENT_S3_BUCKET",
		Role: graph.RoleAttachment, ObjectOwnership: ownershipEnforced, BlockPublicAccess: blockAll,
	},
	{
		ID: IDPaymentProofBucket, LogicalName: "form-payment-proof-bucket", EnvKey: "PAYMENT_PROOF_S3_BUCKET",
		Role: graph.RolePaymentProof, ObjectOwnership: ownershipEnforced, BlockPublicAccess: blockAll,
	},
	{
		ID: IDImageBucket, LogicalName: "form-image-bucket", EnvKey: "IMAGE_S3_BUCKET",
		Role: graph.RoleImage, ObjectOwnership: ownershipObjectWriter, BlockPublicAccess: blockNone,
		PublicRead: true, PublicWriteActions: []string{"s3:GetObject", "s3:PutObject", "s3:PutObjectAcl"}, CORS: true,
	},
	{
		ID: IDLogoBucket, LogicalName: "form-logo-bucket", EnvKey: "LOGO_S3_BUCKET",
		Role: graph.RoleLogo, ObjectOwnership: ownershipObjectWriter, BlockPublicAccess: blockNone,
		PublicRead: true, PublicWriteActions: []string{"s3:GetObject", "s3:PutObject", "s3:PutObjectAcl"}, CORS: true,
	},
	{
		ID: IDStaticAssetsBucket, LogicalName: "form-static-assets-bucket", EnvKey: "STATIC_ASSETS_S3_BUCKET",
		ObjectOwnership: ownershipEnforced, BlockPublicAccess: blockACLs, PublicRead: true, CORS: true,
	},
	{
		ID: IDQuarantineBucket, LogicalName: "form-virus-scanner-quarantine-bucket", EnvKey: "VIRUS_SCANNER_QUARANTINE_S3_BUCKET",
		Role: graph.RoleQuarantine, ObjectOwnership: ownershipEnforced, BlockPublicAccess: blockAll,
	},
	{
		ID: IDCleanBucket, LogicalName: "form-virus-scanner-clean-bucket", EnvKey: "VIRUS_SCANNER_CLEAN_S3_BUCKET",
		Role: graph.RoleClean, ObjectOwnership: ownershipEnforced, BlockPublicAccess: blockAll,
	},
}

// BucketProfiles returns the access profiles of every bucket, in
// declaration order.
func BucketProfiles() []BucketProfile {
	out := make([]BucketProfile, len(bucketProfiles))
	copy(out, bucketProfiles)
	return out
}

func (b *builder) storage() {
	for _, p := range bucketProfiles {
		config := map[string]any{
			"name":              b.suffixed(p.LogicalName, "-"),
			"versioned":         true,
			"enforceTLS":        true,
			"objectOwnership":   p.ObjectOwnership,
			"blockPublicAccess": p.BlockPublicAccess,
			"publicRead":        p.PublicRead,
		}
		if len(p.PublicWriteActions) > 0 {
			config["publicActions"] = p.PublicWriteActions
		}
		if p.CORS {
			config["cors"] = []any{map[string]any{
				"allowedMethods": []string{"GET", "POST"},
				"allowedOrigins": []string{b.publicURL()},
			}}
		}
		b.add(graph.ResourceSpec{
			ID:            p.ID,
			Kind:          graph.KindBucket,
			HoldsUserData: true,
			Config:        config,
		})
	}
}

// bindings maps each bucket role of capability c to its bucket ID.
func bindings(c graph.Capability) map[string]any {
	out := map[string]any{}
	for _, role := range c.Roles() {
		for _, p := range bucketProfiles {
			if p.Role == role {
				out[string(role)] = p.ID
			}
		}
	}
	return out
}

// bucketEnvironment maps each bucket environment key to the bucket name.
func bucketEnvironment() map[string]any {
	env := make(map[string]any, len(bucketProfiles))
	for _, p := range bucketProfiles {
		env[p.EnvKey] = ref(p.ID, "name")
	}
	return env
}
