//go:build integration
// +build integration

package testhelpers

import (
	"testing"

	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

// TestIntegrationSuite_Basic tests basic integration suite functionality
func TestIntegrationSuite_Basic(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	if suite.Logger == nil {
		t.Error("Expected logger to be initialized")
	}

	if suite.Ctx == nil {
		t.Error("Expected context to be initialized")
	}

	if suite.DB == nil || suite.Radio == nil {
		t.Fatal("Expected database and radio to be initialized")
	}
}

// TestIntegrationSuite_Connect tests opening a session on the mock radio
func TestIntegrationSuite_Connect(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	session := suite.Connect()
	if !session.IsConnected() {
		t.Fatal("Expected session to be connected")
	}

	if suite.Radio.CountRequests(protocol.CmdChannelRead) == 0 {
		t.Error("Expected a wake read during connect")
	}
}

// TestIntegrationSuite_CleanupClosesSessions tests that Cleanup closes the port
func TestIntegrationSuite_CleanupClosesSessions(t *testing.T) {
	suite := NewIntegrationSuite(t)
	session := suite.Connect()

	suite.Cleanup()

	if session.IsConnected() {
		t.Error("Expected session to be closed")
	}
	if !suite.Radio.Port.Closed() {
		t.Error("Expected port to be closed")
	}
}
