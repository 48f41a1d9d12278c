//go:build !linux

package main

import "context"

func notifyReady(context.Context) {}

func notifyStopping() {}
