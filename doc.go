// Copyright 2023 uhppoted@twyst.co.za. All rights reserved.
// Use of this source code is governed by an MIT-style license
// that can be found in the LICENSE file.

/*
Package uhppoted-app-sheetdb implements a row store on Google Sheets and a concurrent client for it.

Each sheet of a spreadsheet is a table with a header row, and each row is identified by its 'id'
column. The web app (the 'serve' command) accepts form POST and JSONP GET requests, stamps every
write with a timestamp and rejects writes whose timestamp precondition no longer matches. The
client issues requests asynchronously, flags responses that arrive out of order and tracks the
last known timestamp for each row.

uhppoted-app-sheetdb supports the following commands:

  - authorise, to authorise application access to Google Sheets, Drive or the user profile
  - token, to generate user and admin tokens for a row store key
  - serve, to run the row store web app over a Google Sheets spreadsheet
  - get, to download one or all rows of a sheet as a TSV file
  - put, to upload the rows in a TSV file to a sheet
  - update, to update individual columns of a row
  - roster, to list the submitted rows of a sheet
*/
package sheetdb
