// Copyright (C) 2024 The hsp authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package rest exposes the correction pipeline to remote callers over
// HTTP: orders are posted as JSON and the processing log streams back.
package rest

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hspdev/hsp/internal/config"
	"github.com/hspdev/hsp/internal/ops"
	"github.com/hspdev/hsp/internal/order"
	"github.com/hspdev/hsp/internal/pipeline"
)

// Serve runs the order-submission API until the process ends.
func Serve(cfg *config.Config, addr string) error {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/orders", func(c *gin.Context) { postOrder(c, cfg) })
		}
	}
	return r.Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

// postOrder accepts an order document (JSON with comments and trailing
// commas permitted) and streams the processing log as plain text.
func postOrder(c *gin.Context, cfg *config.Config) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, err := order.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logWriter := c.Writer
	logWriter.Header().Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	opsCtx := ops.NewContext(logWriter)
	results, err := pipeline.Run(o, cfg, opsCtx)
	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	fmt.Fprintf(logWriter, "%d/%d inputs succeeded\n", succeeded, len(results))
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.(http.Flusher).Flush()
}
