package main

import "testing"

func TestFuelFlagsRegistered(t *testing.T) {
	price := rootCmd.Flags().Lookup("fuel-price")
	if price == nil {
		t.Fatal("fuel-price flag not registered")
	}
	if price.DefValue != "90" {
		t.Fatalf("fuel-price default = %s, want 90", price.DefValue)
	}

	kmpl := rootCmd.Flags().Lookup("fuel-efficiency")
	if kmpl == nil {
		t.Fatal("fuel-efficiency flag not registered")
	}
	if kmpl.DefValue != "4" {
		t.Fatalf("fuel-efficiency default = %s, want 4", kmpl.DefValue)
	}
}

func TestBoundsFlagDefaults(t *testing.T) {
	minFlag := rootCmd.Flags().Lookup("min-load")
	maxFlag := rootCmd.Flags().Lookup("max-load")
	if minFlag == nil || maxFlag == nil {
		t.Fatal("load bound flags not registered")
	}
	if minFlag.DefValue != "60" || maxFlag.DefValue != "95" {
		t.Fatalf("load bound defaults = %s/%s, want 60/95", minFlag.DefValue, maxFlag.DefValue)
	}
}
