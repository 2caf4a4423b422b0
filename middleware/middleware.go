/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package middleware binds a unit of work scope to every HTTP request.
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/unitwork/uow"
	"github.com/tomoncle/unitwork/utils"
)

var httpLogger = utils.NewLogger("HTTP")

// UnitOfWork gives each request its own scope in reg, keyed by the chi
// request id when RequestID runs first and by a random uuid otherwise. The
// unit of work is created on first use and released after next returns,
// including when next panics.
func UnitOfWork(reg *uow.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := chimiddleware.GetReqID(r.Context())
			if key == "" {
				key = uuid.NewString()
			}
			scope := reg.Scope(key)
			defer func() {
				if err := scope.Close(); err != nil {
					httpLogger.WithFields(logrus.Fields{"request_id": key, "error": err}).Warn("Failed to release unit of work")
				}
			}()

			next.ServeHTTP(w, r.WithContext(uow.WithScope(r.Context(), scope)))
		})
	}
}

// Logger logs one line per request at debug level.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			httpLogger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start),
				"remote":     r.RemoteAddr,
				"request_id": chimiddleware.GetReqID(r.Context()),
			}).Debug("Request")
		}()

		next.ServeHTTP(ww, r)
	})
}
