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
	IDDatabase     = "database"
	IDDBConnString = "ddbConnString"

	DatabasePort = 27017
)

func (b *builder) database() {
	b.add(graph.ResourceSpec{
		ID:            IDDatabase,
		Kind:          graph.KindDatabase,
		HoldsUserData: true,
		Config: map[string]any{
			"engine":         "docdb",
			"engineVersion":  "4.0",
			"user":           "root",
			"password":       ref(IDDBPassword, "value"),
			"port":           int64(DatabasePort),
			"dbName":         "form",
			"readPreference": "primaryPreferred",
			"instances":      int64(2),
			"instanceType":   "db.t3.medium",
			"parameterGroup": map[string]any{
				"name":       "disabled-tls-parameter2",
				"family":     "docdb4.0",
				"parameters": map[string]any{"tls": "disabled"},
			},
			"subnets":        b.subnetRefs(false),
			"securityGroups": []string{ref(IDDatabaseSecurityGroup, "id")},
		},
	})
	b.add(secretSpec(IDDBConnString, "ddb-connstring", map[string]any{
		"value": ref(IDDatabase, "connectionString"),
	}))
}

// allowDatabase opens the database port to a service's security group.
// Each service gets its own rule.
func (b *builder) allowDatabase(serviceID, securityGroup string) {
	b.ingress("databaseIngress"+upperFirst(serviceID), IDDatabaseSecurityGroup, securityGroup, DatabasePort)
}
