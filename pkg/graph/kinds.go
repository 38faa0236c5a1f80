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
	"net/url"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/opengovsg/formsg-on-cdk/pkg/secrets"
)

// produced holds the attributes a node emits once its config is resolved.
type produced struct {
	values    map[string]any
	sensitive sets.Set[string]
}

func newProduced() *produced {
	return &produced{values: map[string]any{}, sensitive: sets.New[string]()}
}

func (p *produced) set(name string, v any) *produced {
	p.values[name] = v
	return p
}

func (p *produced) setSensitive(name string, v any) *produced {
	p.sensitive.Insert(name)
	return p.set(name, v)
}

// tokens sets each attribute to its provider token.
func (p *produced) tokens(id string, names ...string) *produced {
	for _, name := range names {
		p.set(name, AttributeToken(id, name))
	}
	return p
}

type produceInput struct {
	id      string
	config  map[string]any
	secrets secrets.Generator
}

type producer func(in produceInput) (*produced, error)

type kindInfo struct {
	// attributes are the names other resources may reference.
	attributes []string
	// principal kinds run workloads: they take an environment, secrets and
	// a capability.
	principal bool
	// encloses kinds hold other resources inside them. They cannot be
	// deleted while a resource placed in them still exists.
	encloses bool
	produce  producer
}

func (k kindInfo) hasAttribute(name string) bool {
	return slices.Contains(k.attributes, name)
}

var kindRegistry = map[Kind]kindInfo{
	KindNetwork: {
		attributes: []string{"id", "cidr", "publicRouteTable"},
		encloses:   true,
		produce: func(in produceInput) (*produced, error) {
			cidr, err := stringOr(in.id, in.config, "cidr", "10.0.0.0/16")
			if err != nil {
				return nil, err
			}
			return newProduced().tokens(in.id, "id", "publicRouteTable").set("cidr", cidr), nil
		},
	},
	KindSubnet: {
		// natGateway is only produced by public subnets.
		attributes: []string{"id", "availabilityZone", "natGateway"},
		encloses:   true,
		produce: func(in produceInput) (*produced, error) {
			az, err := requireString(in.id, in.config, "availabilityZone")
			if err != nil {
				return nil, err
			}
			public, err := boolOr(in.id, in.config, "public", false)
			if err != nil {
				return nil, err
			}
			p := newProduced().tokens(in.id, "id").set("availabilityZone", az)
			if public {
				p.tokens(in.id, "natGateway")
			}
			return p, nil
		},
	},
	KindSecurityGroup: {
		attributes: []string{"id"},
		encloses:   true,
		produce:    tokensOnly("id"),
	},
	KindSecret: {
		attributes: []string{"name", "value", "arn"},
		produce:    produceSecret,
	},
	KindBucket: {
		attributes: []string{"name", "arn", "domainName"},
		produce: func(in produceInput) (*produced, error) {
			name, err := requireString(in.id, in.config, "name")
			if err != nil {
				return nil, err
			}
			return newProduced().
				set("name", name).
				set("arn", BucketARN(name)).
				set("domainName", name+".s3.amazonaws.com"), nil
		},
	},
	KindRepository: {
		attributes: []string{"name", "arn", "uri"},
		produce:    namedWithTokens("arn", "uri"),
	},
	KindImageCopy: {
		attributes: []string{"image"},
		produce: func(in produceInput) (*produced, error) {
			if _, err := requireString(in.id, in.config, "source"); err != nil {
				return nil, err
			}
			dest, err := requireString(in.id, in.config, "destination")
			if err != nil {
				return nil, err
			}
			tag, err := stringOr(in.id, in.config, "tag", "latest")
			if err != nil {
				return nil, err
			}
			return newProduced().set("image", dest+":"+tag), nil
		},
	},
	KindCluster: {
		attributes: []string{"name", "arn"},
		produce:    namedWithTokens("arn"),
	},
	KindLogGroup: {
		attributes: []string{"name", "arn"},
		produce:    namedWithTokens("arn"),
	},
	KindLoadBalancer: {
		attributes: []string{"name", "arn", "dnsName", "listenerArn", "url"},
		produce: func(in produceInput) (*produced, error) {
			p, err := namedWithTokens("arn", "dnsName", "listenerArn")(in)
			if err != nil {
				return nil, err
			}
			return p.set("url", "http://"+AttributeToken(in.id, "dnsName")), nil
		},
	},
	KindService: {
		attributes: []string{"name", "arn", "taskRoleArn"},
		principal:  true,
		produce:    namedWithTokens("arn", "taskRoleArn"),
	},
	KindFunction: {
		attributes: []string{"name", "arn", "roleArn"},
		principal:  true,
		produce:    namedWithTokens("arn", "roleArn"),
	},
	KindSchedule: {
		attributes: []string{"arn"},
		produce: func(in produceInput) (*produced, error) {
			if _, err := requireString(in.id, in.config, "target"); err != nil {
				return nil, err
			}
			if _, err := requireString(in.id, in.config, "rate"); err != nil {
				return nil, err
			}
			return newProduced().tokens(in.id, "arn"), nil
		},
	},
	KindDatabase: {
		attributes: []string{"endpoint", "port", "connectionString"},
		produce:    produceDatabase,
	},
	KindIngressRule: {
		attributes: []string{"id"},
		produce: func(in produceInput) (*produced, error) {
			for _, key := range []string{"securityGroup", "source"} {
				if _, err := requireString(in.id, in.config, key); err != nil {
					return nil, err
				}
			}
			if _, err := intOr(in.id, in.config, "port", 0); err != nil {
				return nil, err
			}
			return newProduced().tokens(in.id, "id"), nil
		},
	},
	KindDistribution: {
		attributes: []string{"id", "domainName", "url"},
		produce: func(in produceInput) (*produced, error) {
			aliases, err := stringList(in.id, in.config, "aliases")
			if err != nil {
				return nil, err
			}
			host := AttributeToken(in.id, "domainName")
			if len(aliases) > 0 {
				host = aliases[0]
			}
			return newProduced().tokens(in.id, "id", "domainName").set("url", "https://"+host), nil
		},
	},
}

// KnownKinds returns every supported kind, sorted.
func KnownKinds() []Kind {
	out := make([]Kind, 0, len(kindRegistry))
	for k := range kindRegistry {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Attributes returns the attribute names resources of kind produce.
func Attributes(kind Kind) []string {
	return slices.Clone(kindRegistry[kind].attributes)
}

// Encloses reports whether resources of kind contain other resources, so
// that deleting one fails while anything placed in it remains.
func Encloses(kind Kind) bool {
	return kindRegistry[kind].encloses
}

// BucketARN returns the ARN of the bucket called name.
func BucketARN(name string) string { return "arn:aws:s3:::" + name }

func tokensOnly(names ...string) producer {
	return func(in produceInput) (*produced, error) {
		return newProduced().tokens(in.id, names...), nil
	}
}

// namedWithTokens produces "name" from config, defaulting to the ID, plus
// the given provider tokens.
func namedWithTokens(names ...string) producer {
	return func(in produceInput) (*produced, error) {
		name, err := stringOr(in.id, in.config, "name", in.id)
		if err != nil {
			return nil, err
		}
		return newProduced().set("name", name).tokens(in.id, names...), nil
	}
}

// produceSecret emits the secret's value: the configured one when set,
// otherwise a fresh one from the generator. Values are sensitive unless
// the config says otherwise, which is the case for naming suffixes.
func produceSecret(in produceInput) (*produced, error) {
	name, err := stringOr(in.id, in.config, "name", in.id)
	if err != nil {
		return nil, err
	}
	sensitive, err := boolOr(in.id, in.config, "sensitive", true)
	if err != nil {
		return nil, err
	}

	value, supplied, err := configString(in.id, in.config, "value")
	if err != nil {
		return nil, err
	}
	if !supplied {
		if value, err = generate(in); err != nil {
			return nil, err
		}
	}

	p := newProduced().set("name", name).tokens(in.id, "arn")
	if sensitive {
		return p.setSensitive("value", value), nil
	}
	return p.set("value", value), nil
}

func generate(in produceInput) (string, error) {
	gen, err := objectField(in.id, in.config, "generate")
	if err != nil {
		return "", err
	}
	req := secrets.Request{Key: in.id}
	length, err := intOr(in.id, gen, "length", secrets.DefaultLength)
	if err != nil {
		return "", err
	}
	req.Length = int(length)
	if req.ExcludeCharacters, err = stringOr(in.id, gen, "excludeCharacters", ""); err != nil {
		return "", err
	}
	for key, dst := range map[string]*bool{
		"excludePunctuation": &req.ExcludePunctuation,
		"excludeUppercase":   &req.ExcludeUppercase,
		"excludeLowercase":   &req.ExcludeLowercase,
		"excludeNumbers":     &req.ExcludeNumbers,
	} {
		if *dst, err = boolOr(in.id, gen, key, false); err != nil {
			return "", err
		}
	}
	if in.secrets == nil {
		return "", fmt.Errorf("resource %q: no secret generator configured", in.id)
	}
	value, err := in.secrets.Generate(req)
	if err != nil {
		return "", constraintf([]string{in.id}, "generate secret: %v", err)
	}
	return value, nil
}

// produceDatabase emits the endpoint and the connection string clients use.
func produceDatabase(in produceInput) (*produced, error) {
	user, err := stringOr(in.id, in.config, "user", "root")
	if err != nil {
		return nil, err
	}
	password, err := requireString(in.id, in.config, "password")
	if err != nil {
		return nil, err
	}
	port, err := intOr(in.id, in.config, "port", 27017)
	if err != nil {
		return nil, err
	}
	dbName, err := stringOr(in.id, in.config, "dbName", "form")
	if err != nil {
		return nil, err
	}
	readPreference, err := stringOr(in.id, in.config, "readPreference", "primaryPreferred")
	if err != nil {
		return nil, err
	}

	// The endpoint is a provider token, so the URL is assembled by hand
	// rather than through url.URL, which would escape the braces.
	endpoint := AttributeToken(in.id, "endpoint")
	conn := fmt.Sprintf("mongodb://%s@%s:%d/%s?replicaSet=rs0&readPreference=%s&retryWrites=false",
		url.UserPassword(user, password).String(), endpoint, port, url.PathEscape(dbName), url.QueryEscape(readPreference))
	return newProduced().
		set("endpoint", endpoint).
		set("port", port).
		setSensitive("connectionString", conn), nil
}
