// Copyright (C) 2022-2023 Algorand, Inc.
// This file is part of beaker-go
//
// beaker-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// beaker-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with beaker-go.  If not, see <https://www.gnu.org/licenses/>.

package client

import (
	"fmt"
	"net/url"
)

// NetworkConfig names an algod endpoint for one of the public networks, or a
// private deployment.
type NetworkConfig struct {
	Name     string
	NodeURL  string
	APIToken string
}

// Preconfigured public networks. Sandboxed/local deployments use
// LocalNetConfig or a hand-built NetworkConfig.
var (
	MainNetConfig = NetworkConfig{
		Name:    "mainnet",
		NodeURL: "https://mainnet-api.algonode.cloud",
	}

	TestNetConfig = NetworkConfig{
		Name:    "testnet",
		NodeURL: "https://testnet-api.algonode.cloud",
	}

	BetaNetConfig = NetworkConfig{
		Name:    "betanet",
		NodeURL: "https://betanet-api.algonode.cloud",
	}

	// LocalNetConfig matches the defaults of the algod sandbox.
	LocalNetConfig = NetworkConfig{
		Name:     "localnet",
		NodeURL:  "http://localhost:4001",
		APIToken: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
)

// NamedNetworks maps a network name to its NetworkConfig.
var NamedNetworks = map[string]NetworkConfig{
	MainNetConfig.Name:  MainNetConfig,
	TestNetConfig.Name:  TestNetConfig,
	BetaNetConfig.Name:  BetaNetConfig,
	LocalNetConfig.Name: LocalNetConfig,
}

// MakeRestClientFromConfig constructs a RestClient for the given network.
func MakeRestClientFromConfig(cfg NetworkConfig) (RestClient, error) {
	nodeURL, err := url.Parse(cfg.NodeURL)
	if err != nil {
		return RestClient{}, fmt.Errorf("bad node URL %s: %w", cfg.NodeURL, err)
	}
	return MakeRestClient(*nodeURL, cfg.APIToken), nil
}
