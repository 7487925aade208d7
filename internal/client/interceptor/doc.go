// Package interceptor keeps the client usable when the backend is out of
// reach. Interceptor is an http.RoundTripper that applies a cache policy per
// request class:
//
//   - reads go to the network and are cached on success; when the network
//     fails a fresh cached copy is served, else a synthesized offline payload;
//   - writes always go to the network and failures surface as *NetworkError;
//   - navigations are network-first, then the cached shell, then the
//     embedded offline landing page.
//
// NewProxy mounts the interceptor behind a chi router so a browser UI can
// use it as its backend origin.
package interceptor
